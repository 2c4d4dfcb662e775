package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/audit"
	auditPostgres "github.com/frahmantamala/approval-workflow/internal/audit/postgres"
	"github.com/frahmantamala/approval-workflow/internal/auth"
	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/dispatch"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	rbacPostgres "github.com/frahmantamala/approval-workflow/internal/rbac/postgres"
	"github.com/frahmantamala/approval-workflow/internal/transport/middleware"
	"github.com/frahmantamala/approval-workflow/internal/transport/rest"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	workflowPostgres "github.com/frahmantamala/approval-workflow/internal/workflow/postgres"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
	workitemPostgres "github.com/frahmantamala/approval-workflow/internal/workitem/postgres"
	"github.com/frahmantamala/approval-workflow/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle workflow API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies is the wired application shared by the server and the
// maintenance commands.
type Dependencies struct {
	Config *internal.Config
	Logger *slog.Logger
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client

	RBACRepo  *rbacPostgres.Repository
	Catalog   *rbac.Catalog
	Resolver  *rbac.Resolver
	Guard     *rbac.Guard
	Registry  *workflow.Registry
	WorkItems *workitem.Service
	Bus       *events.EventBus
	Executor  *dispatch.Executor
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, limiter, err := setupRoutes(deps)
	if err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}
	stopSweeper := make(chan struct{})
	go limiter.Run(stopSweeper)
	defer close(stopSweeper)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr, "dispatch_mode", deps.Config.Dispatch.Mode)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		// In-flight inline side effects finish before the pools close.
		if err := deps.Bus.Drain(ctx); err != nil {
			deps.Logger.Warn("side effects still running at shutdown", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) (*chi.Mux, *middleware.RateLimiter, error) {
	cfg := deps.Config
	lg := deps.Logger

	engine := workflow.NewEngine(
		deps.Registry,
		deps.Guard,
		workflow.NewAssigneeResolver(deps.Resolver, lg),
		workflowPostgres.NewUnitOfWork(deps.Gorm),
		auditPostgres.NewRepository(deps.Gorm),
		lg,
		workflow.WithDispatcher(newDispatcher(deps)),
	)

	var validator *middleware.RequestValidator
	if cfg.Server.OpenAPIPath != "" {
		doc, err := middleware.LoadOpenAPI(cfg.Server.OpenAPIPath)
		if err != nil {
			return nil, nil, err
		}
		if validator, err = middleware.NewRequestValidator(doc); err != nil {
			return nil, nil, err
		}
	}

	checks := map[string]rest.Pinger{"postgres": deps.DB.PingContext}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.TokenDuration)

	if cfg.Observability.Metrics.Enabled {
		obs.Init()
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		Health:        rest.NewHealthHandler(checks),
		Auth:          auth.NewHandler(tokens, lg),
		Workflow:      workflow.NewHandler(engine),
		WorkItems:     workitem.NewHandler(deps.WorkItems),
		Audit:         audit.NewHandler(audit.NewService(auditPostgres.NewRepository(deps.Gorm), lg)),
		RBAC:          rbac.NewHandler(deps.Resolver, deps.Catalog),
		Authorization: rbac.NewAuthorization(deps.Guard, lg),
		RateLimiter:   limiter,
		Validator:     validator,

		OpenAPIPath:    cfg.Server.OpenAPIPath,
		MetricsPath:    cfg.Observability.Metrics.Path,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}, lg)

	return router, limiter, nil
}

// newDispatcher picks where committed side effects go: the in-process bus or
// the Redis stream drained by `worker effects`.
func newDispatcher(deps *Dependencies) workflow.Dispatcher {
	if deps.Config.Dispatch.Mode == internal.DispatchModeStream {
		return dispatch.NewStreamPublisher(deps.Redis, deps.Config.Redis.Stream, deps.Logger)
	}
	deps.Executor.Subscribe(deps.Bus)
	return dispatch.NewInlineDispatcher(deps.Bus, deps.Logger)
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Gorm:   gdb,
		Bus:    events.NewEventBus(lg),
	}

	if config.Dispatch.Mode == internal.DispatchModeStream {
		if deps.Redis, err = initRedis(ctx, config.Redis); err != nil {
			deps.Close()
			return nil, err
		}
	}

	deps.RBACRepo = rbacPostgres.NewRepository(db)
	if deps.Catalog, err = rbac.NewDefaultCatalog(deps.RBACRepo, lg); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build role catalog: %w", err)
	}
	if _, err := deps.Catalog.Reload(ctx); err != nil {
		lg.Warn("using built-in role catalog; run `approval-workflow seed` to persist it", "error", err)
	}
	deps.Resolver = rbac.NewResolver(deps.RBACRepo, deps.Catalog, lg)
	deps.Guard = rbac.NewGuard(deps.Resolver, lg)

	if deps.Registry, err = workflow.NewDefaultRegistry(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build workflow registry: %w", err)
	}

	deps.WorkItems = workitem.NewService(workitemPostgres.NewRepository(gdb), lg)
	deps.Executor = newExecutor(config.Dispatch, lg)

	return deps, nil
}

func newExecutor(cfg internal.DispatchConfig, lg *slog.Logger) *dispatch.Executor {
	var (
		notifier  dispatch.Notifier        = dispatch.LogNotifier{Logger: lg}
		documents dispatch.DocumentTrigger = dispatch.LogDocumentTrigger{Logger: lg}
	)
	if cfg.NotifyWebhookURL != "" {
		notifier = dispatch.NewWebhookNotifier(dispatch.WebhookConfig{
			URL:     cfg.NotifyWebhookURL,
			Timeout: cfg.Timeout,
			Retries: 2,
		}, lg)
	}
	if cfg.DocumentWebhookURL != "" {
		documents = dispatch.NewWebhookDocumentTrigger(dispatch.WebhookConfig{
			URL:     cfg.DocumentWebhookURL,
			Timeout: cfg.Timeout,
			Retries: 2,
		}, lg)
	}
	return dispatch.NewExecutor(notifier, documents, lg)
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool so both layers see the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func initRedis(ctx context.Context, cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
