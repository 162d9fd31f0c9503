package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/hr-approval/internal"
	"github.com/frahmantamala/hr-approval/internal/approver"
	auditPostgres "github.com/frahmantamala/hr-approval/internal/audit/postgres"
	"github.com/frahmantamala/hr-approval/internal/auth"
	authPostgres "github.com/frahmantamala/hr-approval/internal/auth/postgres"
	"github.com/frahmantamala/hr-approval/internal/authority"
	authorityPostgres "github.com/frahmantamala/hr-approval/internal/authority/postgres"
	"github.com/frahmantamala/hr-approval/internal/core/events"
	"github.com/frahmantamala/hr-approval/internal/delegation"
	delegationPostgres "github.com/frahmantamala/hr-approval/internal/delegation/postgres"
	"github.com/frahmantamala/hr-approval/internal/location"
	locationPostgres "github.com/frahmantamala/hr-approval/internal/location/postgres"
	"github.com/frahmantamala/hr-approval/internal/notification"
	notificationPostgres "github.com/frahmantamala/hr-approval/internal/notification/postgres"
	"github.com/frahmantamala/hr-approval/internal/notification/webhook"
	"github.com/frahmantamala/hr-approval/internal/resource"
	resourcePostgres "github.com/frahmantamala/hr-approval/internal/resource/postgres"
	"github.com/frahmantamala/hr-approval/internal/transport"
	"github.com/frahmantamala/hr-approval/internal/transport/rest"
	"github.com/frahmantamala/hr-approval/internal/transport/swagger"
	"github.com/frahmantamala/hr-approval/internal/user"
	userPostgres "github.com/frahmantamala/hr-approval/internal/user/postgres"
	"github.com/frahmantamala/hr-approval/internal/workflow"
	workflowPostgres "github.com/frahmantamala/hr-approval/internal/workflow/postgres"
	"github.com/frahmantamala/hr-approval/pkg/keylock"
	"github.com/frahmantamala/hr-approval/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Webhook  *webhook.Channel
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("server shutdown error", "error", err)
		}
		deps.EventBus.Close()
		if deps.Webhook != nil {
			deps.Webhook.Shutdown()
		}
		if err := deps.DB.Close(); err != nil {
			lg.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			lg.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	lg.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(appEnv(), cfg.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	ctx := context.Background()
	doc, err := swagger.LoadSpec(ctx, cfg.Server.OpenAPIPath)
	if err != nil {
		return nil, err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := openGorm(db)
	if err != nil {
		return nil, err
	}

	defaultRouting, err := workflow.DefaultRoutingFromConfig(cfg.Workflow)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow config: %w", err)
	}

	// reference data
	store := authorityPostgres.NewStore(gdb)
	holder := authority.NewSnapshotHolder(store)
	if err := holder.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	eventBus := events.NewEventBus(lg)
	var hook *webhook.Channel
	var channel notification.Channel = notification.NewLogChannel(lg)
	if cfg.Notification.WebhookURL != "" {
		hook = webhook.NewChannel(webhook.Config{
			URL:         cfg.Notification.WebhookURL,
			Timeout:     cfg.Notification.WebhookTimeout,
			MaxWorkers:  cfg.Notification.Workers,
			QueueSize:   cfg.Notification.QueueSize,
			MaxAttempts: cfg.Notification.MaxAttempts,
		}, lg)
		channel = hook
	}
	notification.NewEventHandler(channel, lg).RegisterEventHandlers(eventBus)
	locks := keylock.New()

	locationRepo := locationPostgres.NewLocationRepository(gdb)
	hierarchy := location.NewHierarchy(locationRepo)

	approvers := approver.NewResolver(store, holder, lg)
	authz := authority.NewResolver(store, holder, authority.WithLogger(lg))
	instances := workflowPostgres.NewInstanceRepository(gdb)
	authz.SetStepGate(workflow.NewStepGate(instances, approvers))

	templateRepo := workflowPostgres.NewTemplateRepository(gdb)
	resources := resourcePostgres.NewRepository(gdb)
	engine := workflow.NewEngine(workflow.Dependencies{
		Templates: templateRepo,
		Instances: instances,
		Resources: resources,
		Locations: hierarchy,
		Authority: authz,
		Approvers: approvers,
		History:   auditPostgres.NewRecorder(gdb),
		Locks:     locks,
		Publisher: eventBus,
	}, lg)
	templates := workflow.NewTemplateService(templateRepo, holder, hierarchy, approvers, lg)

	delegations := delegation.NewManager(delegationPostgres.NewDelegationRepository(gdb), store, holder, locks, eventBus, cfg.Delegation.MaxWindow, lg)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(gdb), tokens, cfg.Security.BCryptCost, lg)

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.RouterConfig{
		DB:             db,
		Checker:        authz,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPI:        doc,
		Logger:         lg,
	}, rest.Handlers{
		Auth:         auth.NewHandler(base, authService),
		User:         user.NewHandler(base, user.NewService(userPostgres.NewRepository(gdb), lg)),
		Location:     location.NewHandler(base, location.NewService(locationRepo, lg)),
		Authority:    authority.NewHandler(base, authz),
		Delegation:   delegation.NewHandler(base, delegations),
		Resource:     resource.NewHandler(base, resource.NewService(resources, lg)),
		Notification: notification.NewHandler(base, notification.NewService(notificationPostgres.NewOutbox(gdb), lg)),
		Workflow:     workflow.NewHandler(base, engine, templates, defaultRouting),
	})

	return &Dependencies{
		Config:   cfg,
		DB:       db,
		Gorm:     gdb,
		Router:   router,
		EventBus: eventBus,
		Webhook:  hook,
		Logger:   lg,
	}, nil
}
