package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"ledger-swap/config"
)

// EVMWallet is the EVM implementation of Wallet for one configured network.
type EVMWallet struct {
	networkName string
	network     config.EVMNetwork
	client      *ethclient.Client
	privateKey  *ecdsa.PrivateKey
	address     common.Address
}

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// NewEVMWallet creates an EVM wallet for a specific network.
func NewEVMWallet(cfg config.EVMConfig, networkName string) (*EVMWallet, error) {
	network, exists := cfg.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not configured", networkName)
	}

	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", networkName)
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for network %s", networkName)
	}

	client, err := ethclient.Dial(network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}

	return &EVMWallet{
		networkName: networkName,
		network:     network,
		client:      client,
		privateKey:  privateKey,
		address:     crypto.PubkeyToAddress(*publicKey),
	}, nil
}

func (e *EVMWallet) Address() string {
	return e.address.Hex()
}

func (e *EVMWallet) Capabilities() Capabilities {
	return Capabilities{CanSendNativeAsset: true, CanSignMessage: true}
}

// SignMessage signs with the personal-sign scheme: the payload is prefixed
// before hashing so signed messages can never double as transactions.
func (e *EVMWallet) SignMessage(message []byte) ([]byte, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	sig, err := crypto.Sign(hash.Bytes(), e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// SendNativeAsset transfers the network's gas asset and returns the tx hash.
func (e *EVMWallet) SendNativeAsset(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address: %s", to)
	}
	toAddress := common.HexToAddress(to)

	// Native assets use 18 decimals on every supported network.
	amountWei := amount.Shift(18).BigInt()

	balance, err := e.client.BalanceAt(ctx, e.address, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(amountWei) < 0 {
		return "", fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance, amountWei)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := uint64(21000) // standard transfer
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	}

	tx := ethtypes.NewTransaction(nonce, toAddress, amountWei, gasLimit, gasPrice, nil)
	return e.signAndSend(ctx, tx)
}

// SendToken transfers an ERC20 token and returns the tx hash. The token's
// decimals are read from the contract.
func (e *EVMWallet) SendToken(ctx context.Context, mintID, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address: %s", to)
	}
	if !common.IsHexAddress(mintID) {
		return "", fmt.Errorf("invalid token contract address: %s", mintID)
	}
	toAddress := common.HexToAddress(to)
	tokenAddress := common.HexToAddress(mintID)

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return "", fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	decimals, err := e.getTokenDecimals(ctx, parsedABI, tokenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to get token decimals: %w", err)
	}
	amountUnits := amount.Shift(int32(decimals)).BigInt()

	balance, err := e.getERC20Balance(ctx, parsedABI, tokenAddress)
	if err != nil {
		return "", fmt.Errorf("failed to get token balance: %w", err)
	}
	if balance.Cmp(amountUnits) < 0 {
		return "", fmt.Errorf("insufficient token balance: have %s, need %s", balance, amountUnits)
	}

	data, err := parsedABI.Pack("transfer", toAddress, amountUnits)
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer data: %w", err)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := uint64(100000) // typical ERC20 transfer
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	} else {
		msg := ethereum.CallMsg{From: e.address, To: &tokenAddress, Data: data}
		if estimated, err := e.client.EstimateGas(ctx, msg); err == nil {
			gasLimit = estimated * 120 / 100 // 20% buffer
		}
	}

	tx := ethtypes.NewTransaction(nonce, tokenAddress, big.NewInt(0), gasLimit, gasPrice, data)
	return e.signAndSend(ctx, tx)
}

func (e *EVMWallet) signAndSend(ctx context.Context, tx *ethtypes.Transaction) (string, error) {
	chainID := big.NewInt(e.network.ChainID)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

func (e *EVMWallet) getGasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (e *EVMWallet) getTokenDecimals(ctx context.Context, parsedABI abi.ABI, tokenAddress common.Address) (uint8, error) {
	data, err := parsedABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals data: %w", err)
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to call decimals: %w", err)
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("token contract returned no decimals")
	}

	return uint8(new(big.Int).SetBytes(result).Uint64()), nil
}

func (e *EVMWallet) getERC20Balance(ctx context.Context, parsedABI abi.ABI, tokenAddress common.Address) (*big.Int, error) {
	data, err := parsedABI.Pack("balanceOf", e.address)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// Close closes the client connection
func (e *EVMWallet) Close() {
	if e.client != nil {
		e.client.Close()
	}
}
