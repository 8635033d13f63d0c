package data

import (
	"fmt"
	"time"

	"FuseGate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogAdapter routes GORM log output through the kratos logger.
type gormLogAdapter struct {
	helper *log.Helper
}

func (a *gormLogAdapter) Printf(format string, args ...interface{}) {
	a.helper.Warnf(format, args...)
}

// NewMySQLClient creates a new GORM MySQL client for the audit trail.
// The audit database is optional: without a configured DSN the client is nil
// and audit events degrade to structured logs only.
func NewMySQLClient(c *conf.Data, l log.Logger) (*gorm.DB, func(), error) {
	helper := log.NewHelper(l)

	if c == nil || c.Database == nil || c.Database.Source == "" {
		helper.Warn("audit database is not configured, transitions will only be logged")
		return nil, func() {}, nil
	}

	gormLogger := logger.New(
		&gormLogAdapter{helper: helper},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(c.Database.Source), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	helper.Info("connected to audit database")

	cleanup := func() {
		helper.Info("closing audit database")
		if err := sqlDB.Close(); err != nil {
			helper.Errorf("failed to close audit database: %v", err)
		}
	}

	return db, cleanup, nil
}
