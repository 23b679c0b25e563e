package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/trattoria/livesync/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

type dish struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

func dishKey(d dish) string { return d.ID }

type staticDatabase struct{ db *gorm.DB }

func (s staticDatabase) DB() (*gorm.DB, error) {
	if s.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return s.db, nil
}
func (s staticDatabase) Ping(context.Context) error { return nil }
func (s staticDatabase) Close() error               { return nil }

// dryRun builds statements without a server
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "livesync:secret@tcp(127.0.0.1:3306)/livesync?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               glogger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open() = %v", err)
	}
	return gdb
}

func TestConfig_DSN(t *testing.T) {
	cfg := (&Config{Host: "db", User: "u", Password: "p", Database: "site"}).MergeDefaults()
	want := "u:p@tcp(db:3306)/site?charset=utf8mb4&parseTime=True&loc=UTC"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return (&Config{Host: "db", User: "u", Password: "p", Database: "site"}).MergeDefaults()
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing host", func(c *Config) { c.Host = "" }, "host is required"},
		{"missing user", func(c *Config) { c.User = "" }, "user is required"},
		{"missing password", func(c *Config) { c.Password = "" }, "password is required"},
		{"missing database", func(c *Config) { c.Database = "" }, "database is required"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"log level case", func(c *Config) { c.LogLevel = "INFO" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GormLevel(t *testing.T) {
	tests := map[string]glogger.LogLevel{
		"silent": glogger.Silent,
		"Error":  glogger.Error,
		"warn":   glogger.Warn,
		"info":   glogger.Info,
		"":       glogger.Warn,
	}
	for level, want := range tests {
		if got := (&Config{LogLevel: level}).gormLevel(); got != want {
			t.Errorf("gormLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestNewMySQL_InvalidConfig(t *testing.T) {
	_, err := NewMySQL(logger.NewNop(), &Config{Host: "db"})
	if err == nil || !strings.Contains(err.Error(), "db: invalid config") {
		t.Fatalf("NewMySQL() = %v", err)
	}
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := &gormLogger{logger: zap.New(core), level: glogger.Warn, slowThreshold: 100 * time.Millisecond}
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, nil)
	if logs.Len() != 0 {
		t.Fatalf("fast statement logged at warn level: %v", logs.All())
	}

	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatal("record not found must not be logged")
	}

	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	if got := logs.FilterMessage("slow sql").Len(); got != 1 {
		t.Errorf("slow sql entries = %d, want 1", got)
	}

	g.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	entries := logs.FilterMessage("sql error").All()
	if len(entries) != 1 || entries[0].ContextMap()["sql"] != "SELECT 1" {
		t.Errorf("sql error entries = %v", entries)
	}

	info := g.LogMode(glogger.Info)
	info.Trace(context.Background(), time.Now(), sql, nil)
	if got := logs.FilterMessage("sql trace").Len(); got != 1 {
		t.Errorf("sql trace entries = %d, want 1", got)
	}
	if g.level != glogger.Warn {
		t.Error("LogMode must not change the receiver")
	}

	silent := g.LogMode(glogger.Silent)
	before := logs.Len()
	silent.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	if logs.Len() != before {
		t.Error("silent logger wrote an entry")
	}
}

func TestNewDocuments_Validation(t *testing.T) {
	db := staticDatabase{db: dryRun(t)}
	if _, err := NewDocuments[dish](db, "", dishKey); err == nil {
		t.Error("empty collection accepted")
	}
	if _, err := NewDocuments[dish](db, "menu_items", nil); err == nil {
		t.Error("nil key accepted")
	}
	if _, err := NewDocuments(staticDatabase{}, "menu_items", dishKey); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("NewDocuments() without connection = %v", err)
	}
}

func TestDocuments_ListQuery(t *testing.T) {
	docs, err := NewDocuments(staticDatabase{db: dryRun(t)}, "menu_items", dishKey)
	if err != nil {
		t.Fatalf("NewDocuments() = %v", err)
	}

	stmt := docs.listQuery(context.Background()).Find(&[]Record{}).Statement
	sql := stmt.SQL.String()
	if !strings.Contains(sql, "FROM `documents`") || !strings.Contains(sql, "collection = ?") || !strings.HasSuffix(sql, "ORDER BY id") {
		t.Errorf("list SQL = %q", sql)
	}
	if len(stmt.Vars) != 1 || stmt.Vars[0] != "menu_items" {
		t.Errorf("list vars = %v", stmt.Vars)
	}

	list, err := docs.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Errorf("List() on dry run = %v, %v", list, err)
	}
}

func TestDocuments_Codec(t *testing.T) {
	docs, err := NewDocuments(staticDatabase{db: dryRun(t)}, "menu_items", dishKey)
	if err != nil {
		t.Fatalf("NewDocuments() = %v", err)
	}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	docs.now = func() time.Time { return fixed }

	r, err := docs.encode(dish{ID: "carbonara", Name: "Carbonara", Price: "12.50"})
	if err != nil {
		t.Fatalf("encode() = %v", err)
	}
	if r.Collection != "menu_items" || r.ID != "carbonara" || !r.UpdatedAt.Equal(fixed) || r.UpdatedAt.Location() != time.UTC {
		t.Errorf("record = %+v", r)
	}

	got, err := docs.decode(r)
	if err != nil || got.Name != "Carbonara" || got.Price != "12.50" {
		t.Errorf("decode() = %+v, %v", got, err)
	}

	if _, err := docs.encode(dish{Name: "nameless"}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("encode() without id = %v", err)
	}
	if _, err := docs.decode(Record{ID: "bad", Data: []byte("{")}); err == nil || !strings.Contains(err.Error(), "menu_items/bad") {
		t.Errorf("decode() of invalid json = %v", err)
	}
	if _, err := docs.Get(context.Background(), ""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("Get(\"\") = %v", err)
	}
}
