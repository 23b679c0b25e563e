package db

import (
	"context"

	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type defaultMySQLDatabase struct {
	logger logger.Logger
	db     *gorm.DB
}

// NewMySQL opens the document database and, when configured, migrates the documents table
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		// merge default values for empty fields
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dd := &defaultMySQLDatabase{
		logger: log,
	}

	var err error
	dd.db, err = gorm.Open(mysql.Open(cfg.DSN()), gormConfig(log, cfg))
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := dd.db.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	// set connection pool settings
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// test connection
	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnection(err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(dd.db); err != nil {
			_ = sqldb.Close()
			return nil, err
		}
	}

	dd.logger.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)

	return dd, nil
}

func gormConfig(log logger.Logger, cfg *Config) *gorm.Config {
	return &gorm.Config{
		Logger: &gormLogger{
			logger:        log,
			level:         cfg.gormLevel(),
			slowThreshold: cfg.SlowThreshold,
		},
		PrepareStmt:                              true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Migrate creates or updates the documents table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return ErrQuery("migrate", tableDocuments, err)
	}
	return nil
}

func (dd *defaultMySQLDatabase) DB() (*gorm.DB, error) {
	if dd.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return dd.db, nil
}

func (dd *defaultMySQLDatabase) Ping(ctx context.Context) error {
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (dd *defaultMySQLDatabase) Close() error {
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}
