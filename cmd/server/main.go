package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"main/internal/market"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/portfolio"
	"main/internal/relay"
	"main/internal/wallet"
	"main/pkg/conn"
)

// walletPayment adapts the wallet service to the orchestrator's blocking
// payment port.
type walletPayment struct {
	wallet *wallet.Service
}

func (p walletPayment) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	return p.wallet.Balance(ctx, userID)
}

func (p walletPayment) DeductForPurchase(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error {
	_, err := p.wallet.DeductForPurchase(ctx, userID, amount, description, referenceID)
	return err
}

func (p walletPayment) CreditFromSale(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error {
	_, err := p.wallet.CreditFromSale(ctx, userID, amount, description, referenceID)
	return err
}

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	demo := flag.Bool("demo", false, "Run a scripted settlement scenario and exit")
	flag.Parse()

	_ = godotenv.Load()

	if addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS"); addr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "order-settlement",
			ServerAddress:   addr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseObjects,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer profiler.Stop()
	}

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		orderRepo     order.Repository
		walletRepo    wallet.Repository
		portfolioRepo portfolio.Repository
	)
	if cfg.Postgres.Host != "" {
		client, err := conn.New(conn.Option{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer client.Close()

		op := order.NewPGRepository(client.DB())
		wp := wallet.NewPGRepository(client.DB())
		pp := portfolio.NewPGRepository(client.DB())
		for _, migrate := range []func() error{op.Migrate, wp.Migrate, pp.Migrate} {
			if err := migrate(); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		orderRepo, walletRepo, portfolioRepo = op, wp, pp
	} else {
		orderRepo = order.NewMemoryRepository()
		walletRepo = wallet.NewMemoryRepository()
		portfolioRepo = portfolio.NewMemoryRepository()
	}

	seeds := cfg.Seeds
	if len(seeds) == 0 {
		seeds = defaultSeeds()
	}
	provider := market.NewStaticProvider(seeds)

	metrics := obs.NewMetrics()
	events := relay.New(cfg.Relay.Partitions, cfg.Relay.Capacity, metrics)

	walletSvc := wallet.NewService(cfg.Wallet, walletRepo)
	positions := portfolio.NewService(portfolioRepo, provider, walletSvc)
	orders := order.NewService(cfg.Order, orderRepo, provider, walletPayment{walletSvc}, events, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events.Run(ctx, portfolio.NewConsumer(positions).Handle)

	if *demo {
		runDemo(ctx, orders, walletSvc, positions)
		events.Close()
		events.Wait()
		snapshot := metrics.Snapshot()
		logs.Infof("demo finished: %d created, %d executed, %d failed, %d events consumed",
			snapshot.OrdersCreated, snapshot.OrdersExecuted, snapshot.OrdersFailed, snapshot.EventsConsumed)
		return
	}

	logs.Info("settlement pipeline running")
	<-ctx.Done()
	events.Close()
	events.Wait()
	logs.Info("settlement pipeline stopped")
}

func runDemo(ctx context.Context, orders *order.Service, wallets *wallet.Service, positions *portfolio.Service) {
	const userID = 1

	if _, err := wallets.CreateWallet(ctx, userID, "BASIC"); err != nil {
		logs.Errorf("create wallet, err: %+v", err)
		return
	}
	if _, err := wallets.Deposit(ctx, userID, decimal.NewFromInt(5000), "Demo top-up", uuid.NewString()); err != nil {
		logs.Errorf("deposit, err: %+v", err)
		return
	}
	if _, err := positions.CreatePortfolio(ctx, userID); err != nil {
		logs.Errorf("create portfolio, err: %+v", err)
		return
	}

	requests := []order.CreateRequest{
		{UserID: userID, Symbol: "AAPL", Type: order.TypeBuy, Quantity: 10},
		{UserID: userID, Symbol: "AAPL", Type: order.TypeBuy, Quantity: 5},
		{UserID: userID, Symbol: "AAPL", Type: order.TypeSell, Quantity: 8},
	}
	for _, req := range requests {
		o, err := orders.CreateOrder(ctx, req)
		if err != nil {
			logs.Errorf("create order, err: %+v", err)
			continue
		}
		logs.Infof("order %d finished as %s", o.ID, o.Status)
	}

	summary, err := orders.GetUserOrderSummary(ctx, userID)
	if err != nil {
		logs.Errorf("order summary, err: %+v", err)
		return
	}
	logs.Infof("orders: %d total, %d executed, commission $%s",
		summary.TotalOrders, summary.ExecutedOrders, summary.TotalCommission.StringFixed(2))
}

func defaultSeeds() []market.Quote {
	return []market.Quote{
		{Symbol: "AAPL", CompanyName: "Apple Inc.", Price: decimal.RequireFromString("189.50")},
		{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", Price: decimal.RequireFromString("141.25")},
		{Symbol: "MSFT", CompanyName: "Microsoft Corporation", Price: decimal.RequireFromString("378.90")},
		{Symbol: "TSLA", CompanyName: "Tesla, Inc.", Price: decimal.RequireFromString("248.75")},
	}
}
