package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/officeappout/out-run-app-sub001/internal/api"
	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/session"
	"github.com/officeappout/out-run-app-sub001/internal/store"
	"github.com/officeappout/out-run-app-sub001/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for service state data
	DefaultStateDir = "/var/lib/outrun"
	// DefaultDBFileName is the default SQLite database filename for sessions
	DefaultDBFileName = "outrun.db"
	// DefaultContentDBFileName is the default SQLite database filename for content
	DefaultContentDBFileName = "content.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contentStore, err := buildContentStore(ctx, flags)
	if err != nil {
		slog.Error("Failed to initialize content store", "error", err)
		os.Exit(1)
	}
	defer contentStore.Close()

	sessionStore, err := buildSessionStore(flags)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer sessionStore.Close()

	mgr := session.NewManager(contentStore, sessionStore)
	if err := mgr.Recover(ctx); err != nil {
		slog.Error("Failed to recover sessions", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(mgr, contentStore, buildAPIOptions(flags)...)
	slog.Info("Bootstrapping questionnaire service", "content_driver", *flags.contentDriver, "session_dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("Service failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Service exited successfully")
}

// Config holds environment configuration
type Config struct {
	ContentDriver string
	ContentURI    string
	MongoDatabase string
	RedisAddr     string
	CacheTTL      time.Duration
	DatabaseURL   string
	StateDir      string
	APIAddr       string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	contentDriver *string
	contentURI    *string
	mongoDatabase *string
	redisAddr     *string
	cacheTTL      *time.Duration
	dbDSN         *string
	apiAddr       *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		ContentDriver: util.GetEnv("CONTENT_DRIVER", "sqlite"),
		ContentURI:    os.Getenv("CONTENT_URI"),
		MongoDatabase: util.GetEnv("MONGO_DATABASE", content.DefaultMongoDatabase),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		CacheTTL:      util.ParseDurationEnv("CONTENT_CACHE_TTL", content.DefaultCacheTTL),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      util.GetEnv("OUTRUN_STATE_DIR", DefaultStateDir),
		APIAddr:       os.Getenv("API_ADDR"),
	}

	// File-backed defaults live in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No session database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.ContentURI == "" && config.ContentDriver == "sqlite" {
		config.ContentURI = filepath.Join(config.StateDir, DefaultContentDBFileName)
		slog.Debug("No content URI provided, defaulting to SQLite", "sqlite_path", config.ContentURI)
	}

	slog.Debug("environment variables loaded",
		"CONTENT_DRIVER", config.ContentDriver,
		"CONTENT_URI_SET", config.ContentURI != "",
		"MONGO_DATABASE", config.MongoDatabase,
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"OUTRUN_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for service data (overrides $OUTRUN_STATE_DIR)"),
		contentDriver: flag.String("content-driver", config.ContentDriver, "content store driver: mongo, sqlite, or memory (overrides $CONTENT_DRIVER)"),
		contentURI:    flag.String("content-uri", config.ContentURI, "content store URI: MongoDB URI or SQLite path (overrides $CONTENT_URI)"),
		mongoDatabase: flag.String("mongo-database", config.MongoDatabase, "MongoDB database name (overrides $MONGO_DATABASE)"),
		redisAddr:     flag.String("redis-addr", config.RedisAddr, "Redis address for the content cache, empty disables caching (overrides $REDIS_ADDR)"),
		cacheTTL:      flag.Duration("cache-ttl", config.CacheTTL, "content cache TTL (overrides $CONTENT_CACHE_TTL)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "session database DSN: PostgreSQL DSN or SQLite path (overrides $DATABASE_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"contentDriver", *flags.contentDriver,
		"contentURI_set", *flags.contentURI != "",
		"redisAddr_set", *flags.redisAddr != "",
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.contentURI} {
		if dsn == "" || store.DetectDSNType(dsn) != "sqlite" {
			continue
		}
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// buildContentStore selects and initializes the content backend, wrapping it
// in a Redis cache when one is configured.
func buildContentStore(ctx context.Context, flags Flags) (content.Store, error) {
	var (
		inner content.Store
		err   error
	)
	switch *flags.contentDriver {
	case "mongo":
		inner, err = content.NewMongoStore(ctx,
			content.WithURI(*flags.contentURI),
			content.WithDatabase(*flags.mongoDatabase),
		)
	case "memory":
		inner = content.NewInMemoryStore()
	default:
		inner, err = content.NewSQLiteStore(content.WithURI(*flags.contentURI))
	}
	if err != nil {
		return nil, err
	}

	if *flags.redisAddr == "" {
		return inner, nil
	}
	client := redis.NewClient(&redis.Options{Addr: *flags.redisAddr})
	slog.Info("Content cache enabled", "redis_addr", *flags.redisAddr, "ttl", *flags.cacheTTL)
	return content.NewCachedStore(inner, client, *flags.cacheTTL), nil
}

// buildSessionStore selects and initializes the session persistence backend.
func buildSessionStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory session store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL session store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite session store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
