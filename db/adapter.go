package db

import (
	"fmt"

	"github.com/fitquest/server/config"
	dbmysql "github.com/fitquest/server/db/mysql"
	dbpostgres "github.com/fitquest/server/db/postgres"
	dbsqlite "github.com/fitquest/server/db/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
	ModePostgres     = "postgres"
)

// Open returns a *gorm.DB for the configured database mode. Query logging goes
// through zap when cfg.LogQueries is set, otherwise GORM stays silent.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gl := queryLogger(cfg, log)
	pool := dbmysql.Pool{MaxOpen: cfg.MaxOpen, MaxIdle: cfg.MaxIdle, MaxLife: cfg.MaxLife}
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath, gl)
	case ModeSQLiteMemory:
		return dbsqlite.OpenMemory("", gl)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, pool, gl)
	case ModePostgres:
		return dbpostgres.Open(cfg.PostgresDSN, pool, gl)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

func queryLogger(cfg config.DatabaseConfig, log *zap.Logger) gormlogger.Interface {
	if !cfg.LogQueries || log == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
		LogLevel:                  gormlogger.Info,
		IgnoreRecordNotFoundError: true,
	})
}
