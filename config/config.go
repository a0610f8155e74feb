package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// SolanaConfig holds the Solana wallet settings.
type SolanaConfig struct {
	RPCUrl        string `mapstructure:"rpc_url"`
	PrivateKey    string `mapstructure:"private_key"`
	Commitment    string `mapstructure:"commitment"`
	SkipPreflight bool   `mapstructure:"skip_preflight"`
}

// EVMNetwork holds the settings for one EVM-compatible network.
type EVMNetwork struct {
	RPCUrl     string  `mapstructure:"rpc_url"`
	PrivateKey string  `mapstructure:"private_key"`
	ChainID    int64   `mapstructure:"chain_id"`
	GasLimit   *uint64 `mapstructure:"gas_limit"`
	GasPrice   *int64  `mapstructure:"gas_price"`
}

// EVMConfig holds the EVM wallet settings, keyed by network name.
type EVMConfig struct {
	Networks map[string]EVMNetwork `mapstructure:"networks"`
}

// Config holds the application configuration
type Config struct {
	GatewayURL  string
	PriceAPIURL string
	ExplorerURL string

	// UserAddress is the caller's principal on the home ledger.
	UserAddress string
	// Spender is the swap backend's principal, the allowance target for
	// pre-approval assets.
	Spender string

	SlippagePct float64
	HistoryPath string
	ReferredBy  string

	// WalletChain selects the foreign wallet: "solana" or "evm".
	WalletChain string
	// EVMNetwork names the network from EVM.Networks to use.
	EVMNetwork string

	Solana SolanaConfig
	EVM    EVMConfig
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".ledger-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("gateway_url", "https://gateway.ledger-swap.io")
	viper.SetDefault("price_api_url", "https://prices.ledger-swap.io")
	viper.SetDefault("spender", "swap-backend")
	viper.SetDefault("slippage_pct", 0.5)
	viper.SetDefault("wallet_chain", "solana")
	viper.SetDefault("solana.commitment", "confirmed")

	// Read from environment variables
	viper.SetEnvPrefix("LEDGER_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		GatewayURL:  viper.GetString("gateway_url"),
		PriceAPIURL: viper.GetString("price_api_url"),
		ExplorerURL: viper.GetString("explorer_url"),
		UserAddress: viper.GetString("user_address"),
		Spender:     viper.GetString("spender"),
		SlippagePct: viper.GetFloat64("slippage_pct"),
		HistoryPath: viper.GetString("history_path"),
		ReferredBy:  viper.GetString("referred_by"),
		WalletChain: viper.GetString("wallet_chain"),
		EVMNetwork:  viper.GetString("evm_network"),
		Solana: SolanaConfig{
			RPCUrl:        viper.GetString("solana.rpc_url"),
			PrivateKey:    viper.GetString("solana.private_key"),
			Commitment:    viper.GetString("solana.commitment"),
			SkipPreflight: viper.GetBool("solana.skip_preflight"),
		},
	}

	if err := viper.UnmarshalKey("evm", &cfg.EVM); err != nil {
		return nil, fmt.Errorf("invalid evm configuration: %w", err)
	}

	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("gateway URL not found. Please set LEDGER_SWAP_GATEWAY_URL or create a .ledger-swap.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
