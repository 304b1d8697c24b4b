package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/atlasbank/servicedesk/internal/api/http"
	"github.com/atlasbank/servicedesk/internal/api/http/handlers"
	"github.com/atlasbank/servicedesk/internal/auth"
	"github.com/atlasbank/servicedesk/internal/config"
	"github.com/atlasbank/servicedesk/internal/events"
	"github.com/atlasbank/servicedesk/internal/observability"
	"github.com/atlasbank/servicedesk/internal/persistence"
	"github.com/atlasbank/servicedesk/internal/repository"
	"github.com/atlasbank/servicedesk/internal/service"
	"github.com/atlasbank/servicedesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	slaRepo := repository.NewSLARepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	templateRepo := repository.NewChecklistTemplateRepository(pool)
	checklistRepo := repository.NewChecklistRepository(pool)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(userRepo, tokenManager, cfg.Auth.BcryptCost)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ServiceRepo:  serviceRepo,
		ApprovalRepo: approvalRepo,
		SLARepo:      slaRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		ClaimGuard:   redis.ClientHandle(),
		ClaimTTL:     cfg.SLA.ClaimLockTTL(),
	})
	approvalService := service.NewApprovalService(approvalRepo, historyRepo, ticketService)
	checklistService := service.NewChecklistService(service.ChecklistDependencies{
		ChecklistRepo: checklistRepo,
		TemplateRepo:  templateRepo,
		UserRepo:      userRepo,
		Dispatcher:    dispatcher,
		Location:      cfg.App.Location(),
	})
	reportService := service.NewReportService(ticketRepo, serviceRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	slaMonitor := worker.NewSLAMonitor(ticketRepo, serviceRepo, slaRepo, dispatcher, metrics, logger, cfg.SLA.MonitorSchedule)
	if err := slaMonitor.Start(ctx); err != nil {
		logger.Fatal("failed to start sla monitor", zap.Error(err))
	}
	defer slaMonitor.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Approvals:      handlers.NewApprovalsHandler(approvalService, ticketService),
		Checklists:     handlers.NewChecklistsHandler(checklistService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
