// Package postgres provides relational storage for tenants and audit entries.
// Tenant data goes through gorm (PostgreSQL in production, SQLite for local runs
// and tests); the audit ring uses a raw pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

// DBConnection manages a PostgreSQL connection pool.
type DBConnection struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection creates the pool and performs an initial ping.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrServerError("database configuration is missing")
	}
	log = log.WithComponent("pgxpool")

	log.Info(ctx, "Initializing PostgreSQL connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetURL())
	if err != nil {
		log.Error(ctx, "Failed to parse database connection string", err)
		return nil, errors.ErrServerError("invalid database configuration").WithCause(err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "Failed to create database connection pool", err)
		return nil, errors.ErrServerError("database unavailable").WithCause(err)
	}

	db := &DBConnection{pool: pool, config: cfg, logger: log}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Pool returns the underlying pool.
func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies database connectivity.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.logger.Error(ctx, "Database ping failed", err)
		return errors.ErrServerError("database unavailable").WithCause(err)
	}

	if latency := time.Since(start); latency > 100*time.Millisecond {
		db.logger.Warn(ctx, "High database latency detected", logger.Duration("latency", latency))
	}
	return nil
}

// Close shuts down the pool.
func (db *DBConnection) Close() {
	db.pool.Close()
	db.logger.Info(context.Background(), "PostgreSQL connection pool closed")
}

// OpenGorm opens the relational tenant store for backend ("postgres" or
// "sqlite") and migrates its tables when cfg.AutoMigrate is set.
func OpenGorm(backend string, cfg *config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch backend {
	case config.StoragePostgres:
		dialector = gormpostgres.Open(cfg.GetDSN())
	case config.StorageSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported relational backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, errors.ErrServerError("failed to open tenant database").WithCause(err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if cfg.MaxConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConns)
		}
		if cfg.MaxConnLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
		}
		if cfg.MaxConnIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
		}
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, errors.ErrServerError("failed to migrate tenant database").WithCause(err)
		}
	}

	log.Info(context.Background(), "Tenant database opened", logger.String("backend", backend))
	return db, nil
}

// AutoMigrate creates or updates the tenant tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&InstitutionRow{}, &HistoricalDefaultRow{})
}
