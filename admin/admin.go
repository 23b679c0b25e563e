// Package admin is the write side of the restaurant content. Every
// successful write is followed by a change message on the change topic; the
// cache mirrors learn about writes only through that topic.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trattoria/livesync/feed"
	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
)

// Entity is a record an admin can edit
type Entity interface {
	Validate() error
}

// Repository stores the authoritative documents of one collection
type Repository[T any] interface {
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, doc T) error
	Update(ctx context.Context, doc T) (int64, error)
	Delete(ctx context.Context, id string) (T, error)
}

// Publisher sends change messages; kafka.Producer satisfies it
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ChangeMessage) error
}

// Keys reads and assigns the id of a document
type Keys[T any] struct {
	Key     func(T) string
	WithKey func(T, string) T
}

// Service edits one collection
type Service[T Entity] struct {
	logger     logger.Logger
	collection string
	keys       Keys[T]
	repo       Repository[T]
	publisher  Publisher
	newID      func() string
	now        func() time.Time
}

// NewService returns the service editing collection through repo
func NewService[T Entity](
	log logger.Logger,
	collection string,
	keys Keys[T],
	repo Repository[T],
	publisher Publisher,
) (*Service[T], error) {
	if collection == "" {
		return nil, ErrInvalidConfig("collection is required")
	}
	if keys.Key == nil || keys.WithKey == nil {
		return nil, ErrInvalidConfig("key and withKey funcs are required")
	}
	if repo == nil || publisher == nil {
		return nil, ErrInvalidConfig("repository and publisher are required")
	}
	return &Service[T]{
		logger:     log,
		collection: collection,
		keys:       keys,
		repo:       repo,
		publisher:  publisher,
		newID:      uuid.NewString,
		now:        time.Now,
	}, nil
}

// Collection returns the edited collection
func (s *Service[T]) Collection() string { return s.collection }

// Create validates doc, assigns a new id when it has none, stores it and
// announces it as added. It returns the stored document.
func (s *Service[T]) Create(ctx context.Context, doc T) (T, error) {
	if err := doc.Validate(); err != nil {
		return doc, ErrValidation(err)
	}
	if s.keys.Key(doc) == "" {
		doc = s.keys.WithKey(doc, s.newID())
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return doc, ErrWrite("create", s.collection, err)
	}
	return doc, s.publish(ctx, feed.Added, s.keys.Key(doc), doc)
}

// Update validates doc, replaces the stored version and announces it as modified
func (s *Service[T]) Update(ctx context.Context, doc T) (T, error) {
	if err := doc.Validate(); err != nil {
		return doc, ErrValidation(err)
	}
	key := s.keys.Key(doc)
	if key == "" {
		return doc, ErrMissingID
	}
	version, err := s.repo.Update(ctx, doc)
	if err != nil {
		return doc, ErrWrite("update", s.collection, err)
	}
	s.logger.Debug("document updated",
		zap.String("collection", s.collection),
		zap.String("key", key),
		zap.Int64("version", version),
	)
	return doc, s.publish(ctx, feed.Modified, key, doc)
}

// Delete removes the document with id and announces it as removed with its last content
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	prior, err := s.repo.Delete(ctx, id)
	if err != nil {
		return ErrWrite("delete", s.collection, err)
	}
	return s.publish(ctx, feed.Removed, id, prior)
}

// Get returns the stored document with id
func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return doc, ErrWrite("get", s.collection, err)
	}
	return doc, nil
}

// publish announces a committed write. A failure leaves the write in place;
// pollers and the next snapshot load still pick it up.
func (s *Service[T]) publish(ctx context.Context, kind feed.Kind, key string, doc T) error {
	msg, err := kafka.NewChangeMessage(s.collection, string(kind), key, doc, s.now().UTC())
	if err == nil {
		err = s.publisher.Publish(ctx, msg)
	}
	if err != nil {
		s.logger.Error("failed to publish change",
			zap.String("collection", s.collection),
			zap.String("kind", string(kind)),
			zap.String("key", key),
			zap.Error(err),
		)
		return ErrPublish(s.collection, key, err)
	}
	return nil
}
