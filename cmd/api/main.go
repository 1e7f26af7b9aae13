package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"p2p-lending-backend/internal/adapter/cache"
	"p2p-lending-backend/internal/adapter/gateway"
	httpadp "p2p-lending-backend/internal/adapter/http"
	"p2p-lending-backend/internal/adapter/inference"
	mw "p2p-lending-backend/internal/adapter/middleware"
	"p2p-lending-backend/internal/adapter/repository/mysql"
	"p2p-lending-backend/internal/config"
	"p2p-lending-backend/internal/domain/loan"
	infracache "p2p-lending-backend/internal/infrastructure/cache"
	"p2p-lending-backend/internal/infrastructure/db"
	loanuc "p2p-lending-backend/internal/usecase/loan"
	"p2p-lending-backend/internal/usecase/reputation"
	riskuc "p2p-lending-backend/internal/usecase/risk"
	"p2p-lending-backend/pkg/id"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := gdb.AutoMigrate(&loan.Loan{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := infracache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	repo := mysql.NewLoanRepository(gdb)
	txm := mysql.NewGormUoW(gdb)

	repUC := reputation.NewUsecase(repo)
	loanUC := loanuc.NewUsecase(repo, txm, repUC)

	gatewayTimeout := time.Duration(cfg.GatewayTimeoutSecs) * time.Second
	inferenceTimeout := time.Duration(cfg.InferenceTimeoutSec) * time.Second
	riskUC := riskuc.NewUsecase(
		cache.NewRedisAssessmentCache(rdb),
		gateway.NewEtherscanGateway(cfg.EtherscanURL, cfg.EtherscanAPIKey, gatewayTimeout),
		inference.NewChatClient(cfg.InferenceURL, cfg.InferenceAPIKey, cfg.InferenceModel, inferenceTimeout),
		time.Duration(cfg.RiskCacheTTLSecs)*time.Second,
		gatewayTimeout,
		inferenceTimeout,
	)

	h := httpadp.NewHandler()
	lh := httpadp.NewLoanHandler(loanUC, repUC)
	rh := httpadp.NewRiskHandler(riskUC, repUC)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: id.NewID32}))
	e.Use(middleware.Logger(), middleware.Recover())

	idem := mw.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// routes
	e.GET("/health", h.Health)

	loans := e.Group("/loans", idem)
	loans.POST("", lh.CreateLoan)
	loans.GET("", lh.ListLoans)
	loans.GET("/custodied", lh.CustodiedBalance)
	loans.GET("/:id", lh.GetLoan)
	loans.POST("/:id/fund", lh.Fund)
	loans.POST("/:id/cancel", lh.Cancel)
	loans.POST("/:id/cancel-funded", lh.CancelFunded)
	loans.POST("/:id/activate", lh.Activate)
	loans.POST("/:id/repay", lh.Repay)
	loans.POST("/:id/default", lh.TriggerDefault)
	loans.POST("/:id/withdraw", lh.WithdrawInvestorShare)
	loans.POST("/:id/collateral", lh.WithdrawCollateral)
	loans.POST("/:id/claim-collateral", lh.ClaimCollateral)

	e.GET("/borrowers/:address/reputation", lh.GetReputation)
	e.POST("/risk-analysis", rh.AnalyzeRisk)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
