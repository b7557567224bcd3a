package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 连接池与日志配置
type Options struct {
	MaxIdleConns int
	MaxOpenConns int
	LogSQL       bool
}

// NewPostgresDB 初始化数据库连接
// 在 DDD 中，它属于 Infrastructure 层
func NewPostgresDB(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func gormConfig(opts Options) *gorm.Config {
	level := logger.Warn
	if opts.LogSQL {
		// 开启 SQL 日志，方便开发时观察
		level = logger.Info
	}
	return &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}
