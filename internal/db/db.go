package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to postgres and verifies the connection. Slow statements
// and errors are reported through the service logger.
func Open(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db.dsn is empty")
	}
	gcfg := &gorm.Config{
		Logger: queryLogger(cfg, logger),
	}

	gdb, err := gorm.Open(postgres.Open(withTimeZone(cfg.DSN, cfg.Timezone)), gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return fmt.Errorf("db not connected")
	}
	return db.SQL.PingContext(ctx)
}

// withTimeZone adds the session TimeZone parameter to a key=value DSN unless
// the DSN already carries one. URL-style DSNs are left alone.
func withTimeZone(dsn, tz string) string {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.Contains(dsn, "://") || strings.Contains(strings.ToLower(dsn), "timezone=") {
		return dsn
	}
	return strings.TrimSpace(dsn) + " TimeZone=" + tz
}

func queryLogger(cfg config.DBConfig, logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	slow := cfg.SlowQuery
	if slow <= 0 {
		slow = 500 * time.Millisecond
	}
	return gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
