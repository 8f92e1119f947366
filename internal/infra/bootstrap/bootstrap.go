// Package bootstrap builds the configured adapters for cmd/api and
// cmd/canscan.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appai "github.com/bryanwahyu/canscan/internal/application/ai"
	"github.com/bryanwahyu/canscan/internal/config"
	"github.com/bryanwahyu/canscan/internal/domain/ai"
	"github.com/bryanwahyu/canscan/internal/domain/records"
	"github.com/bryanwahyu/canscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/canscan/internal/infra/ai/stub"
	"github.com/bryanwahyu/canscan/internal/infra/db/file"
	"github.com/bryanwahyu/canscan/internal/infra/db/memory"
	"github.com/bryanwahyu/canscan/internal/infra/db/migrations"
	mysqlp "github.com/bryanwahyu/canscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/canscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/canscan/internal/infra/storage"
	"github.com/bryanwahyu/canscan/internal/middleware"
)

// NewLogger returns a zap-backed logr.Logger. Verbosity n enables V(n).
func NewLogger(cfg *config.Config) (logr.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-cfg.Log.Verbosity))
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

// Store is an opened record store plus the checks /health runs against it.
type Store struct {
	records.Store
	Checks middleware.Checks
	db     *sql.DB
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type pinger interface {
	Ping(ctx context.Context) error
}

// OpenStore opens the configured record store. SQL backends are migrated
// before use.
func OpenStore(ctx context.Context, cfg *config.Config, log logr.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		st := memory.NewStore()
		return withPing(st, st), nil
	case config.DriverFile:
		st, err := file.NewStore(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		log.Info("using file store", "dir", cfg.Store.Dir)
		return withPing(st, st), nil
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		return sqlStore(ctx, db, migrations.DialectMySQL, mysqlp.NewRecordStore(db), log)
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return sqlStore(ctx, db, migrations.DialectPostgres, postgres.NewRecordStore(db), log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func withPing(st records.Store, p pinger) *Store {
	return &Store{
		Store:  st,
		Checks: middleware.Checks{middleware.CheckRecords: middleware.PingCheck(p.Ping)},
	}
}

func sqlStore(ctx context.Context, db *sql.DB, dialect string, st records.Store, log logr.Logger) (*Store, error) {
	if err := migrations.Run(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("record store ready", "dialect", dialect)
	return &Store{
		Store:  st,
		Checks: middleware.Checks{middleware.CheckRecords: middleware.PingCheck(db.PingContext)},
		db:     db,
	}, nil
}

// NewOracle picks the configured oracle and wraps it with the timeout.
func NewOracle(cfg *config.Config, log logr.Logger) *appai.Service {
	var oracle ai.Oracle
	switch cfg.Oracle.Provider {
	case config.ProviderOpenAI:
		if cfg.Oracle.BaseURL != "" {
			oracle = openai.NewClientWithBaseURL(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.BaseURL)
		} else {
			oracle = openai.NewClient(cfg.Oracle.APIKey, cfg.Oracle.Model)
		}
	default:
		oracle = stub.NewOracle(cfg.Oracle.Delay, *cfg.Oracle.MatchRate, 0)
	}
	log.Info("image oracle configured", "provider", cfg.Oracle.Provider)
	return appai.NewService(oracle, cfg.Oracle.Timeout, log.WithName("oracle"))
}

// NewImageStore connects MinIO when an endpoint is configured. A nil store
// means uploads are kept in memory only.
func NewImageStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	if cfg.Minio.Endpoint == "" {
		return nil, nil
	}
	st, err := storage.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	return st, nil
}
