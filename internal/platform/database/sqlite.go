package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB 单机 / 测试用
// SQLite 只允许一个写连接，FOR UPDATE 子句由方言忽略，事务本身即串行
func NewSQLiteDB(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Open 按驱动名选择
func Open(driver, dsn string, opts Options) (*gorm.DB, error) {
	switch driver {
	case "postgres", "":
		return NewPostgresDB(dsn, opts)
	case "sqlite":
		return NewSQLiteDB(dsn, opts)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
