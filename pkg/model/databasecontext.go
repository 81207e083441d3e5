package model

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseContext struct {
	DB     *gorm.DB
	Config *Database
	Logger *zerolog.Logger
}

var Models = []interface{}{
	ContainerSnapshot{},
	DigestChangeEvent{},
}

func NewDatabaseContext(config *Database, log *zerolog.Logger) (*DatabaseContext, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case DatabaseDriverSqlite, "":
		dialector = sqlite.Open(config.Dsn)
	case DatabaseDriverPostgres:
		dialector = postgres.Open(config.Dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: false,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DatabaseContext{
		DB:     db,
		Config: config,
		Logger: log,
	}, nil
}

func (dc *DatabaseContext) Migrate() error {
	for _, m := range Models {
		if err := dc.DB.AutoMigrate(m); err != nil {
			return err
		}
		if dc.Logger != nil {
			dc.Logger.Debug().Msgf("Migrated model: %T", m)
		}
	}
	return nil
}

func (dc *DatabaseContext) DatabaseMiddleware() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ctx = huma.WithValue(ctx, "databaseContext", dc)
		next(ctx)
	}
}
