package wallet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"ledger-swap/config"
)

// solanaFeeLamports is the flat per-signature fee reserved on top of the
// transfer amount during the balance preflight.
const solanaFeeLamports = 5000

// SolanaWallet is the Solana implementation of Wallet, driven by a local
// Base58 private key.
type SolanaWallet struct {
	config     config.SolanaConfig
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// NewSolanaWallet creates a Solana wallet from config.
func NewSolanaWallet(cfg config.SolanaConfig) (*SolanaWallet, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}

	client := rpc.New(cfg.RPCUrl)

	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &SolanaWallet{
		config:     cfg,
		client:     client,
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

func (s *SolanaWallet) Address() string {
	return s.publicKey.String()
}

func (s *SolanaWallet) Capabilities() Capabilities {
	return Capabilities{CanSendNativeAsset: true, CanSignMessage: true}
}

// SignMessage signs raw bytes with the wallet's ed25519 key.
func (s *SolanaWallet) SignMessage(message []byte) ([]byte, error) {
	sig, err := s.privateKey.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

// SendNativeAsset transfers SOL and returns the transaction signature.
func (s *SolanaWallet) SendNativeAsset(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	// 1 SOL = 1e9 lamports
	lamports := uint64(amount.Shift(9).IntPart())

	balance, err := s.getBalance(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get balance: %w", err)
	}

	minRequired := lamports + solanaFeeLamports
	if balance < minRequired {
		return "", fmt.Errorf("insufficient balance: have %.9f SOL, need %.9f SOL (including fees)",
			float64(balance)/1e9, float64(minRequired)/1e9)
	}

	recent, err := s.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	instruction := system.NewTransferInstruction(
		lamports,
		s.publicKey,
		recipient,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	sig, err := s.signAndSend(ctx, tx)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// SendToken transfers an SPL token and returns the transaction signature.
// The destination's associated token account is created when missing.
func (s *SolanaWallet) SendToken(ctx context.Context, mintID, to string, amount decimal.Decimal) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	tokenMint, err := solana.PublicKeyFromBase58(mintID)
	if err != nil {
		return "", fmt.Errorf("invalid token mint address: %w", err)
	}

	decimals, err := s.getTokenDecimals(ctx, tokenMint)
	if err != nil {
		return "", fmt.Errorf("failed to get token decimals: %w", err)
	}
	tokenAmount := uint64(amount.Shift(int32(decimals)).IntPart())

	sourceTokenAccount, err := s.getAssociatedTokenAddress(s.publicKey, tokenMint)
	if err != nil {
		return "", fmt.Errorf("failed to get source token account: %w", err)
	}

	balance, err := s.getTokenBalance(ctx, sourceTokenAccount)
	if err != nil {
		return "", fmt.Errorf("failed to get token balance: %w", err)
	}
	if balance < tokenAmount {
		have := decimal.NewFromUint64(balance).Shift(-int32(decimals))
		return "", fmt.Errorf("insufficient token balance: have %s, need %s", have, amount)
	}

	destTokenAccount, err := s.getAssociatedTokenAddress(recipient, tokenMint)
	if err != nil {
		return "", fmt.Errorf("failed to get destination token account: %w", err)
	}

	destAccountExists, err := s.accountExists(ctx, destTokenAccount)
	if err != nil {
		return "", fmt.Errorf("failed to check destination account: %w", err)
	}

	recent, err := s.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	instructions := []solana.Instruction{}

	if !destAccountExists {
		createAccountIx := associatedtokenaccount.NewCreateInstruction(
			s.publicKey, // payer
			recipient,   // wallet
			tokenMint,   // mint
		).Build()
		instructions = append(instructions, createAccountIx)
	}

	transferIx := token.NewTransferInstruction(
		tokenAmount,
		sourceTokenAccount,
		destTokenAccount,
		s.publicKey,
		[]solana.PublicKey{}, // no multisig
	).Build()
	instructions = append(instructions, transferIx)

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	sig, err := s.signAndSend(ctx, tx)
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (s *SolanaWallet) signAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	opts := rpc.TransactionOpts{
		SkipPreflight:       s.config.SkipPreflight,
		PreflightCommitment: s.getCommitment(),
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// getBalance returns the SOL balance in lamports
func (s *SolanaWallet) getBalance(ctx context.Context) (uint64, error) {
	balance, err := s.client.GetBalance(ctx, s.publicKey, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// getTokenBalance returns the token balance for a token account
func (s *SolanaWallet) getTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	accountInfo, err := s.client.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}

	amount, err := strconv.ParseUint(accountInfo.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token balance: %w", err)
	}

	return amount, nil
}

// getTokenDecimals gets the decimals for a token mint
func (s *SolanaWallet) getTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	accountInfo, err := s.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get mint account info: %w", err)
	}

	if accountInfo.Value == nil {
		return 0, fmt.Errorf("mint account not found")
	}

	// The decimals field sits at byte offset 44 in the mint account data.
	data := accountInfo.Value.Data.GetBinary()
	if len(data) < 45 {
		return 0, fmt.Errorf("invalid mint account data")
	}

	return data[44], nil
}

func (s *SolanaWallet) getAssociatedTokenAddress(wallet solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// accountExists checks if an account exists on-chain
func (s *SolanaWallet) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	accountInfo, err := s.client.GetAccountInfo(ctx, account)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, err
	}

	return accountInfo.Value != nil, nil
}

func (s *SolanaWallet) getCommitment() rpc.CommitmentType {
	switch strings.ToLower(s.config.Commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
