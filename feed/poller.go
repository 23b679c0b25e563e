package feed

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Poller is a Source for stores without a change stream. It fetches the whole
// collection on an interval and delivers the first result as the snapshot and
// every later result as the diff against the previous one.
type Poller[T any] struct {
	logger     logger.Logger
	collection string
	key        func(T) string
	fetch      FetchFunc[T]

	interval     time.Duration
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

// NewPoller creates a polling source. A nil config uses DefaultPollerConfig.
func NewPoller[T any](
	log logger.Logger,
	cfg *PollerConfig,
	collection string,
	key func(T) string,
	fetch FetchFunc[T],
) (*Poller[T], error) {
	if cfg == nil {
		cfg = DefaultPollerConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collection == "" || key == nil || fetch == nil {
		return nil, ErrInvalidConfig
	}

	return &Poller[T]{
		logger:       log,
		collection:   collection,
		key:          key,
		fetch:        fetch,
		interval:     cfg.Interval,
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}, nil
}

func (p *Poller[T]) Collection() string { return p.collection }

// Subscribe starts a polling loop for sink. The loop stops on Close or when ctx is done.
func (p *Poller[T]) Subscribe(ctx context.Context, sink Sink[T]) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	routine.GoNamedWithContext(ctx, p.logger, p.collection+"-poll", func(ctx context.Context) {
		p.run(ctx, sink)
	})
	return SubscriptionFunc(func() error {
		cancel()
		return nil
	}), nil
}

func (p *Poller[T]) run(ctx context.Context, sink Sink[T]) {
	var (
		prev    []T
		primed  bool
		healthy = true
	)

	poll := func() {
		docs, err := p.fetchWithRetry(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			healthy = false
			sink.Error(ErrFetch(p.collection, err))
			return
		}
		if !primed {
			sink.Snapshot(docs, OriginServer)
			primed = true
		} else {
			for _, change := range Diff(prev, docs, p.key) {
				sink.Change(change, OriginServer)
			}
		}
		prev = docs
		if !healthy {
			healthy = true
			sink.Connectivity(true)
		}
	}

	poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			poll()
		case <-ctx.Done():
			p.logger.Debug("stopping poller", zap.String("collection", p.collection))
			return
		}
	}
}

// fetchWithRetry performs the fetch with exponential backoff on retryable errors
func (p *Poller[T]) fetchWithRetry(ctx context.Context) ([]T, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.retryBackoff << (attempt - 1)
			p.logger.Warn("retrying fetch after backoff",
				zap.String("collection", p.collection),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
		docs, err := p.fetch(fetchCtx)
		cancel()
		if err == nil {
			return docs, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			p.logger.Error("non-retryable fetch error",
				zap.String("collection", p.collection),
				zap.Error(err),
			)
			return nil, err
		}
		p.logger.Warn("fetch failed, will retry",
			zap.String("collection", p.collection),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.maxRetries),
		)
	}
	return nil, lastErr
}

// isRetryableError checks for transient errors like timeouts and connection issues
func isRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"temporary failure",
		"network is unreachable",
	}
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

// Diff returns the changes that turn prev into next: added and modified in
// next's order, then removed ordered by key. Documents are compared by their
// JSON encoding.
func Diff[T any](prev, next []T, key func(T) string) []Change[T] {
	old := make(map[string]T, len(prev))
	for _, doc := range prev {
		old[key(doc)] = doc
	}

	var changes []Change[T]
	seen := make(map[string]struct{}, len(next))
	for _, doc := range next {
		k := key(doc)
		seen[k] = struct{}{}
		before, ok := old[k]
		switch {
		case !ok:
			changes = append(changes, Change[T]{Kind: Added, Doc: doc})
		case !Equal(before, doc):
			changes = append(changes, Change[T]{Kind: Modified, Doc: doc})
		}
	}

	removed := make([]string, 0)
	for k := range old {
		if _, ok := seen[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	for _, k := range removed {
		changes = append(changes, Change[T]{Kind: Removed, Doc: old[k]})
	}
	return changes
}

// Equal compares two documents by their JSON encoding. Unencodable values are never equal.
func Equal[T any](a, b T) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
