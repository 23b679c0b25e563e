package db

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tableDocuments = "documents"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one row of the documents table
type Record struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:64"`
	Data       []byte    `gorm:"type:json;not null"`
	Version    int64     `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"not null;index"`
}

func (Record) TableName() string { return tableDocuments }

// Documents is the repository of one entity collection
type Documents[T any] struct {
	db         *gorm.DB
	collection string
	key        func(T) string
	now        func() time.Time
}

// NewDocuments returns the repository of collection. key extracts a document's id.
func NewDocuments[T any](database Database, collection string, key func(T) string) (*Documents[T], error) {
	if collection == "" {
		return nil, ErrInvalidConfig("collection is required")
	}
	if key == nil {
		return nil, ErrInvalidConfig("key func is required")
	}
	gdb, err := database.DB()
	if err != nil {
		return nil, err
	}
	return &Documents[T]{db: gdb, collection: collection, key: key, now: time.Now}, nil
}

// Collection returns the collection name
func (d *Documents[T]) Collection() string { return d.collection }

// List returns every document of the collection ordered by id. It serves as
// the snapshot loader of the change feeds.
func (d *Documents[T]) List(ctx context.Context) ([]T, error) {
	var records []Record
	if err := d.listQuery(ctx).Find(&records).Error; err != nil {
		return nil, ErrQuery("list", d.collection, err)
	}
	docs := make([]T, 0, len(records))
	for _, r := range records {
		doc, err := d.decode(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get returns the document with id
func (d *Documents[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	r, err := d.find(d.db.WithContext(ctx), id)
	if err != nil {
		return zero, err
	}
	return d.decode(r)
}

// Create inserts doc; an existing id yields ErrDuplicateID
func (d *Documents[T]) Create(ctx context.Context, doc T) error {
	r, err := d.encode(doc)
	if err != nil {
		return err
	}
	r.Version = 1
	if err := d.db.WithContext(ctx).Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return ErrQuery("create", d.collection, err)
	}
	return nil
}

// Update replaces the stored document with doc and bumps its version.
// It returns the new version; a missing id yields ErrNotFound.
func (d *Documents[T]) Update(ctx context.Context, doc T) (int64, error) {
	r, err := d.encode(doc)
	if err != nil {
		return 0, err
	}

	var version int64
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := d.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), r.ID)
		if err != nil {
			return err
		}
		version = current.Version + 1
		res := tx.Model(&Record{}).
			Where("collection = ? AND id = ?", d.collection, r.ID).
			Updates(map[string]any{"data": r.Data, "version": version, "updated_at": r.UpdatedAt})
		if res.Error != nil {
			return ErrQuery("update", d.collection, res.Error)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Delete removes the document with id and returns what was stored
func (d *Documents[T]) Delete(ctx context.Context, id string) (T, error) {
	var prior T
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := d.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if prior, err = d.decode(r); err != nil {
			return err
		}
		res := tx.Where("collection = ? AND id = ?", d.collection, id).Delete(&Record{})
		if res.Error != nil {
			return ErrQuery("delete", d.collection, res.Error)
		}
		return nil
	})
	return prior, err
}

func (d *Documents[T]) listQuery(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).Where("collection = ?", d.collection).Order("id")
}

func (d *Documents[T]) find(tx *gorm.DB, id string) (Record, error) {
	if id == "" {
		return Record{}, ErrEmptyID
	}
	var r Record
	err := tx.Where("collection = ? AND id = ?", d.collection, id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, ErrQuery("get", d.collection, err)
	}
	return r, nil
}

func (d *Documents[T]) encode(doc T) (Record, error) {
	id := d.key(doc)
	if id == "" {
		return Record{}, ErrEmptyID
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return Record{}, ErrEncode(d.collection, err)
	}
	return Record{Collection: d.collection, ID: id, Data: data, UpdatedAt: d.now().UTC()}, nil
}

func (d *Documents[T]) decode(r Record) (T, error) {
	var doc T
	if err := codec.Unmarshal(r.Data, &doc); err != nil {
		return doc, ErrDecode(d.collection, r.ID, err)
	}
	return doc, nil
}
