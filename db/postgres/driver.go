package postgres

import (
	dbmysql "github.com/fitquest/server/db/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by PostgreSQL (pgx) with a connection pool.
func Open(dsn string, pool dbmysql.Pool, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   log,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := pool.Apply(db); err != nil {
		return nil, err
	}
	return db, nil
}
