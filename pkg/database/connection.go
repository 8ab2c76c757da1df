package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stitts-dev/roster-optimizer/pkg/config"
)

// statementTimeoutParam is the Postgres runtime parameter capping each query.
const statementTimeoutParam = "statement_timeout"

// DB is the player store connection. It is only opened when the pool is read
// from the database rather than the CSV exports.
type DB struct {
	*gorm.DB
}

// ConnectionConfig sizes the pool. The service issues one bulk read per pool
// reload and one bulk replace per seed, so a small pool is enough.
type ConnectionConfig struct {
	DatabaseURL      string
	Verbose          bool
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

func connectionConfig(cfg *config.Config) ConnectionConfig {
	return ConnectionConfig{
		DatabaseURL:      cfg.DatabaseURL,
		Verbose:          cfg.IsDevelopment(),
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetime:  cfg.DBConnMaxLifetime,
		StatementTimeout: cfg.DBStatementTimeout,
	}
}

// NewConnection opens the player store described by cfg and verifies it
// answers within the statement timeout.
func NewConnection(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	cc := connectionConfig(cfg)

	dsn, err := withStatementTimeout(cc.DatabaseURL, cc.StatementTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	level := gormlogger.Error
	if cc.Verbose {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to player store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cc.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cc.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cc.ConnMaxLifetime)

	conn := &DB{db}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout(cc.StatementTimeout))
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"max_open_conns":    cc.MaxOpenConns,
		"max_idle_conns":    cc.MaxIdleConns,
		"conn_max_lifetime": cc.ConnMaxLifetime,
		"statement_timeout": cc.StatementTimeout,
	}).Info("Player store connected")

	return conn, nil
}

// withStatementTimeout sets statement_timeout on a URL or key=value DSN. A
// timeout already present in the DSN wins.
func withStatementTimeout(dsn string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return dsn, nil
	}
	ms := strconv.FormatInt(timeout.Milliseconds(), 10)

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		if q.Get(statementTimeoutParam) == "" {
			q.Set(statementTimeoutParam, ms)
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if strings.Contains(dsn, statementTimeoutParam+"=") {
		return dsn, nil
	}
	return strings.TrimSpace(dsn + " " + statementTimeoutParam + "=" + ms), nil
}

func pingTimeout(statementTimeout time.Duration) time.Duration {
	if statementTimeout <= 0 {
		return 10 * time.Second
	}
	return statementTimeout
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection, honoring ctx.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
