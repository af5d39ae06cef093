package db

import (
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/pkg/env"
	"github.com/conveyor-cloud/conveyor/pkg/log"
	_ "github.com/jackc/pgx/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var conn *gorm.DB

// Connection returns the shared gorm connection, opening it on
// first use according to the configured database type.
func Connection() *gorm.DB {
	if conn != nil {
		return conn
	}

	var err error

	switch env.Variables().DatabaseType {
	case "postgres":
		conn, err = gorm.Open(
			postgres.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	case "sqlite":
		fallthrough
	default:
		conn, err = gorm.Open(
			sqlite.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	}

	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	return conn
}

// Migrate applies the schema for all conveyor models.
func Migrate() error {
	return Connection().AutoMigrate(models.All...)
}
