package mysql

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Pool holds connection-pool limits shared by the networked drivers.
type Pool struct {
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

// Apply configures the pool on an opened GORM handle.
func (p Pool) Apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if p.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdle)
	}
	sqlDB.SetConnMaxLifetime(p.MaxLife)
	return nil
}

// Open creates a GORM *DB backed by MySQL with a connection pool.
func Open(dsn string, pool Pool, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: log})
	if err != nil {
		return nil, err
	}
	if err := pool.Apply(db); err != nil {
		return nil, err
	}
	return db, nil
}
