package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledger-swap/pkg/types"
)

func entry(id string, status types.JobStatus, ts time.Time) *Entry {
	return &Entry{
		ID:            id,
		Kind:          KindSwap,
		PaySymbol:     "ICP",
		PayAmount:     "1",
		ReceiveSymbol: "USDT",
		ReceiveAmount: "10",
		Status:        status,
		Timestamp:     ts,
	}
}

func TestStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := NewStorage(path)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.Record(entry("tx-1", types.JobConfirmed, now)))
	require.NoError(t, s.Record(entry("tx-2", types.JobFailed, now.Add(time.Second))))

	// A fresh store sees the persisted entries.
	reopened, err := NewStorage(path)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Count())

	got, err := reopened.Get("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.JobConfirmed, got.Status)
}

func TestStorageListNewestFirst(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	base := time.Now()
	require.NoError(t, s.Record(entry("old", types.JobConfirmed, base)))
	require.NoError(t, s.Record(entry("new", types.JobConfirmed, base.Add(time.Minute))))

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].ID)
	require.Equal(t, "old", list[1].ID)
}

func TestStorageRecordUpdatesInPlace(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.Record(entry("job-7", types.JobPending, now)))
	require.NoError(t, s.Record(entry("job-7", types.JobConfirmed, now)))

	require.Equal(t, 1, s.Count())
	got, err := s.Get("job-7")
	require.NoError(t, err)
	require.Equal(t, types.JobConfirmed, got.Status)
}

func TestStoragePrunesOldest(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	s.maxEntries = 3

	base := time.Now()
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Record(entry(id, types.JobConfirmed, base.Add(time.Duration(i)*time.Second))))
	}

	require.Equal(t, 3, s.Count())
	_, err = s.Get("a")
	require.Error(t, err, "oldest entry must be pruned")
}

func TestStorageListByStatus(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.Record(entry("tx-1", types.JobConfirmed, now)))
	require.NoError(t, s.Record(entry("tx-2", types.JobFailed, now)))

	failed := s.ListByStatus(types.JobFailed)
	require.Len(t, failed, 1)
	require.Equal(t, "tx-2", failed[0].ID)
}

func TestStorageRejectsEmptyID(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	require.Error(t, s.Record(&Entry{}))
}
