package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Chain       ChainConfig    `mapstructure:"chain"`
	Account     AccountConfig  `mapstructure:"account"`
	Workers     WorkerConfig   `mapstructure:"workers"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// ChainConfig describes the EVM network the wallet service talks to.
type ChainConfig struct {
	Name           string                 `mapstructure:"name"`
	ChainID        int                    `mapstructure:"chain_id"`
	RPC            string                 `mapstructure:"rpc"`
	Explorer       string                 `mapstructure:"explorer"`
	NativeCurrency CurrencyConfig         `mapstructure:"native_currency"`
	Tokens         map[string]TokenConfig `mapstructure:"tokens"`
}

type CurrencyConfig struct {
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals int    `mapstructure:"decimals"`
}

// TokenConfig is one entry of the supported-token allow-list. Tokens not
// listed here are never surfaced, even when the chain reports a balance.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals int    `mapstructure:"decimals"`
}

// AccountConfig contains the account-abstraction provider configuration
type AccountConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	PolicyID   string `mapstructure:"policy_id"`
	Timeout    int    `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// WorkerConfig contains background worker configuration
type WorkerConfig struct {
	StatusPollInterval  int    `mapstructure:"status_poll_interval"`  // seconds between pending-transfer scans
	StalePendingMinutes int    `mapstructure:"stale_pending_minutes"` // age after which a pending transfer is failed
	ReconcileSchedule   string `mapstructure:"reconcile_schedule"`    // cron spec for the reconciliation pass
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "wallet_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.issuer", "wallet_service")

	// Chain defaults (Sepolia testnet)
	viper.SetDefault("chain.name", "sepolia")
	viper.SetDefault("chain.chain_id", 11155111)
	viper.SetDefault("chain.explorer", "https://sepolia.etherscan.io")
	viper.SetDefault("chain.native_currency.name", "Ethereum")
	viper.SetDefault("chain.native_currency.symbol", "ETH")
	viper.SetDefault("chain.native_currency.decimals", 18)

	// Account-abstraction provider defaults
	viper.SetDefault("account.timeout", 30)
	viper.SetDefault("account.max_retries", 5)

	// Worker defaults
	viper.SetDefault("workers.status_poll_interval", 5)
	viper.SetDefault("workers.stale_pending_minutes", 30)
	viper.SetDefault("workers.reconcile_schedule", "@every 10m")
}

func overrideFromEnv() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// JWT
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}

	// Chain RPC
	if rpcURL := os.Getenv("CHAIN_RPC_URL"); rpcURL != "" {
		viper.Set("chain.rpc", rpcURL)
	}
	if explorer := os.Getenv("CHAIN_EXPLORER_URL"); explorer != "" {
		viper.Set("chain.explorer", explorer)
	}

	// Account-abstraction provider
	if apiKey := os.Getenv("ACCOUNT_API_KEY"); apiKey != "" {
		viper.Set("account.api_key", apiKey)
	}
	if baseURL := os.Getenv("ACCOUNT_BASE_URL"); baseURL != "" {
		viper.Set("account.base_url", baseURL)
	}
	if policyID := os.Getenv("ACCOUNT_GAS_POLICY_ID"); policyID != "" {
		viper.Set("account.policy_id", policyID)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Chain.RPC == "" {
		return fmt.Errorf("chain RPC endpoint is required")
	}

	if config.Chain.NativeCurrency.Symbol == "" {
		return fmt.Errorf("chain native currency configuration is required")
	}

	return nil
}
