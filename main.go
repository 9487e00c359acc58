package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute/databricks"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute/grpcnode"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource/inline"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource/mongodb"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource/postgres"

	"github.com/ekaya-inc/ekaya-lakehouse/migrations"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/handlers"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/middleware"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.User+"@"+cfg.Database.Host+"/"+cfg.Database.Database),
		zap.Bool("user_cache", cfg.Redis.Enabled()),
		zap.Strings("compute_schemes", compute.Schemes()))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db, migrations.FS, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	encryptor, err := crypto.NewConfigEncryptor(cfg.ProjectCredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credentials encryptor", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecretKey, cfg.Auth.AccessTokenTTL())

	// Repositories
	userRepo := repositories.NewUserRepository()
	projectRepo := repositories.NewProjectRepository()
	datasourceRepo := repositories.NewDatasourceRepository(encryptor)
	dataTableRepo := repositories.NewDataTableRepository()
	warehouseRepo := repositories.NewWarehouseRepository()
	linkRepo := repositories.NewWarehouseDataTableRepository()

	// Adapters
	adapterFactory := datasource.NewAdapterFactory(
		time.Duration(cfg.Datasource.ConnectTimeoutSeconds)*time.Second, logger)
	sessionFactory := compute.NewSessionFactory(cfg.Compute.ExecuteTimeout(), logger)
	gateway := services.NewGateway(sessionFactory, adapterFactory,
		cfg.Compute.TableFormat, cfg.Compute.InsertBatchSize, logger)

	auditor := audit.NewSecurityAuditor(logger)

	// Services
	userService := services.NewUserService(userRepo, tokens, logger)
	projectService := services.NewProjectService(projectRepo, warehouseRepo, datasourceRepo, logger)
	datasourceService := services.NewDatasourceService(datasourceRepo, dataTableRepo, projectRepo,
		adapterFactory, database.InTx, auditor, logger)
	dataTableService := services.NewDataTableService(dataTableRepo, datasourceRepo, logger)
	warehouseService := services.NewWarehouseService(warehouseRepo, linkRepo, dataTableRepo,
		datasourceRepo, projectRepo, gateway, database.InTx, logger)
	queryService := services.NewQueryService(projectRepo, dataTableRepo, datasourceRepo, gateway, auditor, logger)

	userResolver := services.NewCachedUserResolver(userService, redisClient,
		time.Duration(cfg.Redis.TTLSeconds)*time.Second, logger)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(tokens, logger), userResolver, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(userService, logger).RegisterRoutes(mux)
	handlers.NewUsersHandler(userService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewDatasourcesHandler(datasourceService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewDataTablesHandler(dataTableService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewWarehousesHandler(warehouseService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewQueriesHandler(queryService, cfg.Compute.MaxUploadMB, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.CORS(cfg.Origins),
		middleware.RequestLogger(logger),
		database.WithScope(db, logger),
	)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting ekaya-lakehouse", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
