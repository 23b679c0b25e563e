// Package db connects to the MySQL database holding the authoritative entity
// documents and exposes a typed repository over them.
//
// Every entity collection shares the documents table. A row stores one entity
// as JSON together with a version that grows on every update.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is the interface for the database
type Database interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}
