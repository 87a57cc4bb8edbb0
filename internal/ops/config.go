package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"main/internal/market"
	"main/internal/order"
	"main/internal/wallet"
)

// FileConfig mirrors the JSON config layout. Monetary values are strings so
// they parse into decimals without float round-trips.
type FileConfig struct {
	Order    OrderConfig    `json:"order"`
	Wallet   WalletConfig   `json:"wallet"`
	Relay    RelayConfig    `json:"relay"`
	Market   MarketConfig   `json:"market"`
	Postgres PostgresConfig `json:"postgres"`
}

// OrderConfig holds commission and quantity limits.
type OrderConfig struct {
	CommissionRate string `json:"commissionRate"`
	MinQuantity    int64  `json:"minQuantity"`
	MaxQuantity    int64  `json:"maxQuantity"`
}

// WalletConfig holds onboarding settings.
type WalletConfig struct {
	Currency         string            `json:"currency"`
	StartingBalances map[string]string `json:"startingBalances"`
}

// RelayConfig sizes the event relay.
type RelayConfig struct {
	Partitions int `json:"partitions"`
	Capacity   int `json:"capacity"`
}

// MarketConfig seeds the static market data provider.
type MarketConfig struct {
	Seeds []SeedConfig `json:"seeds"`
}

// SeedConfig is one seeded quote.
type SeedConfig struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
}

// PostgresConfig describes the database connection. An empty host selects
// the in-memory repositories.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Order    order.Config
	Wallet   wallet.Config
	Relay    RelayConfig
	Seeds    []market.Quote
	Postgres PostgresConfig
}

// Default returns the configuration used when no file is given.
func Default() Loaded {
	return Loaded{
		Order: order.Config{
			CommissionRate: decimal.RequireFromString("0.001"),
			MinQuantity:    1,
			MaxQuantity:    10000,
		},
		Wallet: wallet.Config{
			Currency: "USD",
			StartingBalances: map[string]decimal.Decimal{
				"BASIC":   decimal.NewFromInt(10000),
				"PREMIUM": decimal.NewFromInt(50000),
				"ADMIN":   decimal.NewFromInt(100000),
			},
		},
		Relay: RelayConfig{Partitions: 4, Capacity: 256},
	}
}

// Load reads a JSON config file and resolves it against the defaults.
func Load(path string) (Loaded, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}

	loaded := Default()
	if err := resolveOrder(cfg.Order, &loaded.Order); err != nil {
		return Loaded{}, err
	}
	if err := resolveWallet(cfg.Wallet, &loaded.Wallet); err != nil {
		return Loaded{}, err
	}
	if cfg.Relay.Partitions > 0 {
		loaded.Relay.Partitions = cfg.Relay.Partitions
	}
	if cfg.Relay.Capacity > 0 {
		loaded.Relay.Capacity = cfg.Relay.Capacity
	}
	seeds, err := resolveSeeds(cfg.Market)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Seeds = seeds
	loaded.Postgres = cfg.Postgres
	return loaded, nil
}

func resolveOrder(cfg OrderConfig, out *order.Config) error {
	if cfg.CommissionRate != "" {
		rate, err := decimal.NewFromString(cfg.CommissionRate)
		if err != nil {
			return fmt.Errorf("invalid commission rate %q: %w", cfg.CommissionRate, err)
		}
		if rate.IsNegative() {
			return fmt.Errorf("commission rate must be >= 0")
		}
		out.CommissionRate = rate
	}
	if cfg.MinQuantity > 0 {
		out.MinQuantity = cfg.MinQuantity
	}
	if cfg.MaxQuantity > 0 {
		out.MaxQuantity = cfg.MaxQuantity
	}
	if out.MinQuantity > out.MaxQuantity {
		return fmt.Errorf("min quantity %d exceeds max quantity %d", out.MinQuantity, out.MaxQuantity)
	}
	return nil
}

func resolveWallet(cfg WalletConfig, out *wallet.Config) error {
	if cfg.Currency != "" {
		out.Currency = cfg.Currency
	}
	if len(cfg.StartingBalances) == 0 {
		return nil
	}
	balances := make(map[string]decimal.Decimal, len(cfg.StartingBalances))
	for role, raw := range cfg.StartingBalances {
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid starting balance for role %s: %w", role, err)
		}
		balances[strings.ToUpper(role)] = balance
	}
	out.StartingBalances = balances
	return nil
}

func resolveSeeds(cfg MarketConfig) ([]market.Quote, error) {
	seeds := make([]market.Quote, 0, len(cfg.Seeds))
	for _, seed := range cfg.Seeds {
		if seed.Symbol == "" {
			return nil, fmt.Errorf("market seed symbol is empty")
		}
		price, err := decimal.NewFromString(seed.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price for seed %s: %w", seed.Symbol, err)
		}
		seeds = append(seeds, market.Quote{
			Symbol:      seed.Symbol,
			CompanyName: seed.Name,
			Price:       price,
		})
	}
	return seeds, nil
}
