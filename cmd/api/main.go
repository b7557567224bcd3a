package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finplan/backend/internal/ledger/adapter/repo"
	"github.com/finplan/backend/internal/ledger/api"
	"github.com/finplan/backend/internal/ledger/domain"
	"github.com/finplan/backend/internal/ledger/service"
	"github.com/finplan/backend/internal/platform/config"
	"github.com/finplan/backend/internal/platform/database"
	"github.com/finplan/backend/internal/platform/logger"
	"github.com/finplan/backend/internal/platform/server"
	"github.com/finplan/backend/internal/platform/tracing"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error reading config: %s", err)
	}

	// 2. 初始化基础设施 (Infra)
	appLogger, err := logger.NewLogger(cfg.Server.Mode, cfg.Tracing.ServiceName)
	if err != nil {
		log.Fatalf("Error building logger: %s", err)
	}
	defer func() { _ = appLogger.Sync() }()

	shutdownTracing, err := tracing.InitTracing(context.Background(), cfg.Tracing.ServiceName, version, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		appLogger.Fatal("Tracing init failed", zap.Error(err))
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, database.Options{
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogSQL:       cfg.Database.LogSQL,
	})
	if err != nil {
		appLogger.Fatal("Database connection failed", zap.Error(err))
	}

	names := service.CategoryNames{
		OtherIncome:         cfg.Ledger.OtherIncomeCategory,
		OtherExpense:        cfg.Ledger.OtherExpenseCategory,
		DepositInterest:     cfg.Ledger.DepositInterestCategory,
		SavingsInterest:     cfg.Ledger.SavingsInterestCategory,
		LoanInterestIncome:  cfg.Ledger.LoanInterestIncomeCategory,
		LoanInterestExpense: cfg.Ledger.LoanInterestExpenseCategory,
		Commission:          cfg.Ledger.CommissionCategory,
	}.WithDefaults()

	if cfg.Database.AutoMigrate {
		if err := prepareSchema(db, names); err != nil {
			appLogger.Fatal("Schema migration failed", zap.Error(err))
		}
	}

	// 3. 依赖注入 (Wiring)
	// -- Ledger Module --
	itemRepo := repo.NewItemRepo()
	settingsRepo := repo.NewPlanSettingsRepo()
	txRepo := repo.NewTransactionRepo()
	chainRepo := repo.NewChainRepo()
	refRepo := repo.NewReferenceRepo()

	ledgerSvc := service.NewLedgerService(db, itemRepo, txRepo, refRepo, appLogger)
	chainSvc := service.NewChainService(db, chainRepo, txRepo, ledgerSvc, appLogger)
	planSvc := service.NewPlanService(db, itemRepo, settingsRepo, refRepo, chainSvc, ledgerSvc, names, appLogger)
	itemSvc := service.NewItemService(db, itemRepo, settingsRepo, txRepo, refRepo, ledgerSvc, chainSvc, planSvc, domain.SystemClock{}, names, appLogger)
	ledgerHandler := api.NewLedgerHandler(ledgerSvc, itemSvc, planSvc, chainSvc)

	// 4. 初始化 Server (Gateway)
	srv := server.NewServer(appLogger, cfg.Server.Port, cfg.Server.Mode, ledgerHandler)

	// 5. 启动服务，收到信号后优雅停机
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		appLogger.Warn("Tracing shutdown failed", zap.Error(err))
	}
}

// prepareSchema 建表并写入自动交易依赖的全局分类
func prepareSchema(db *gorm.DB, names service.CategoryNames) error {
	if err := database.Migrate(db); err != nil {
		return err
	}
	scopes := names.Scopes()
	seeds := make([]database.SeedCategory, 0, len(scopes))
	for name, scope := range scopes {
		seeds = append(seeds, database.SeedCategory{Name: name, Scope: scope})
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Name < seeds[j].Name })
	return database.SeedCategories(db, seeds)
}
