// Package journal records every mirror event as a row in ClickHouse.
//
// Rows are buffered on an unbounded channel and flushed in batches when the
// buffer reaches FlushSize or on the flush interval. Recording never blocks
// the mirror pump; rows of a failed batch are logged and dropped.
package journal

import (
	"context"
	"time"
)

// Row is one journaled mirror event
type Row struct {
	Collection string
	Event      string
	Key        string
	TotalCount int
	Online     bool
	Stale      bool
	At         time.Time
}

// Inserter writes a batch of rows
type Inserter interface {
	Insert(ctx context.Context, rows []Row) error
	Close() error
}
