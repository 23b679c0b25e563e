package journal

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const createTableSQL = "CREATE TABLE IF NOT EXISTS `%s` (" +
	"collection LowCardinality(String), " +
	"event LowCardinality(String), " +
	"key String, " +
	"total_count UInt32, " +
	"online Bool, " +
	"stale Bool, " +
	"at DateTime64(3, 'UTC')" +
	") ENGINE = MergeTree ORDER BY (collection, at)"

// insertSQL lists the columns in the order Row values are appended
const insertSQL = "INSERT INTO `%s` (collection, event, key, total_count, online, stale, at)"

type clickHouseInserter struct {
	config *ClickHouseConfig
	logger logger.Logger
	conn   driver.Conn

	mu     sync.RWMutex
	closed bool
}

// NewClickHouse connects to ClickHouse and returns an Inserter for the journal table
func NewClickHouse(log logger.Logger, config *ClickHouseConfig) (Inserter, error) {
	if config == nil {
		config = DefaultClickHouseConfig()
	}
	config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: config.Hosts,
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		Debug:       config.Debug,
		Settings:    config.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}

	if config.CreateTable {
		if err := conn.Exec(ctx, fmt.Sprintf(createTableSQL, config.Table)); err != nil {
			conn.Close()
			return nil, ErrConnection(err)
		}
	}

	log.Info("clickhouse journal initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
		zap.String("table", config.Table),
	)
	return newClickHouseInserter(log, config, conn), nil
}

func newClickHouseInserter(log logger.Logger, config *ClickHouseConfig, conn driver.Conn) *clickHouseInserter {
	return &clickHouseInserter{config: config, logger: log, conn: conn}
}

// Insert sends rows as one batch
func (c *clickHouseInserter) Insert(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(insertSQL, c.config.Table))
	if err != nil {
		return ErrInsert(c.config.Table, err)
	}
	for _, row := range rows {
		if err := batch.Append(rowValues(row)...); err != nil {
			_ = batch.Abort()
			return ErrInsert(c.config.Table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return ErrInsert(c.config.Table, err)
	}
	return nil
}

func (c *clickHouseInserter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close clickhouse connection", zap.Error(err))
		return err
	}
	return nil
}

func rowValues(r Row) []any {
	count := r.TotalCount
	if count < 0 {
		count = 0
	}
	return []any{r.Collection, r.Event, r.Key, uint32(count), r.Online, r.Stale, r.At.UTC()}
}
