package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps the shared gorm handle for the trade-history database. The trades
// table, the daily equity table and the correction audit tables all live in
// the same file, matching the deployed layout.
type DB struct {
	gorm *gorm.DB
}

func Open(path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger: trade db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Single-process batch job; one connection keeps sqlite lock contention at zero.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &DB{gorm: db}, nil
}

// OpenInMemory is used by tests. Each call gets its own named in-memory
// database so parallel tests do not share state.
func OpenInMemory() (*DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &DB{gorm: db}, nil
}

func (d *DB) Gorm() *gorm.DB { return d.gorm }

func (d *DB) Close() error {
	if d == nil || d.gorm == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Store is the append-only trade log.
type Store struct {
	db *gorm.DB
}

func NewStore(db *DB) (*Store, error) {
	if db == nil || db.gorm == nil {
		return nil, fmt.Errorf("ledger: db not initialised")
	}
	if err := db.gorm.AutoMigrate(&tradeModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db.gorm}, nil
}

// Append inserts one trade row. Rows are never updated or deleted through
// this store.
func (s *Store) Append(ctx context.Context, t Trade) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("ledger store not initialised")
	}
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("ledger: trade requires an instrument code")
	}
	if t.Action != ActionBuy && t.Action != ActionSell {
		return fmt.Errorf("ledger: invalid action %q", t.Action)
	}
	if t.Price <= 0 || t.Quantity <= 0 {
		return fmt.Errorf("ledger: trade price/quantity must be positive (price=%.6f qty=%.6f)", t.Price, t.Quantity)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	model := newTradeModel(t)
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListUpTo returns every trade with timestamp <= cutoff in chronological
// order. This is the replay engine's sole input.
func (s *Store) ListUpTo(ctx context.Context, cutoff time.Time) ([]Trade, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialised")
	}
	var models []tradeModel
	if err := s.db.WithContext(ctx).
		Where("timestamp <= ?", cutoff.UnixMilli()).
		Order("timestamp ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Trade, 0, len(models))
	for _, m := range models {
		out = append(out, tradeModelToRecord(m))
	}
	return out, nil
}

// All returns the full trade log in chronological order.
func (s *Store) All(ctx context.Context) ([]Trade, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("ledger store not initialised")
	}
	var models []tradeModel
	if err := s.db.WithContext(ctx).
		Order("timestamp ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Trade, 0, len(models))
	for _, m := range models {
		out = append(out, tradeModelToRecord(m))
	}
	return out, nil
}

// Count returns the number of rows in the trade log.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("ledger store not initialised")
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&tradeModel{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
