// Package equity owns the persisted daily equity snapshots and everything
// that protects them: the write guard, the post-cycle consistency check and
// the audited correction framework for manual repairs.
package equity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"etfbot/internal/ledger"
)

// DateLayout is the snapshot primary-key format.
const DateLayout = "2006-01-02"

// ErrSnapshotExists is returned by Write when the date already has a row and
// overwrite was not requested.
var ErrSnapshotExists = errors.New("equity snapshot already exists for date")

type dailyEquityModel struct {
	Date   string  `gorm:"column:date;primaryKey"`
	Equity float64 `gorm:"column:equity;not null"`
}

func (dailyEquityModel) TableName() string {
	return "daily_equity"
}

// SnapshotStore persists one equity figure per calendar date. All writes are
// expected to come through the Guard; the store itself only enforces the
// exists-unless-overwrite rule.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *ledger.DB) (*SnapshotStore, error) {
	if db == nil || db.Gorm() == nil {
		return nil, fmt.Errorf("equity: db not initialised")
	}
	if err := db.Gorm().AutoMigrate(&dailyEquityModel{}); err != nil {
		return nil, err
	}
	return &SnapshotStore{db: db.Gorm()}, nil
}

// Get returns the equity persisted for date, if any.
func (s *SnapshotStore) Get(ctx context.Context, date string) (float64, bool, error) {
	var m dailyEquityModel
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return m.Equity, true, nil
}

// LatestBefore returns the most recent snapshot strictly before date.
func (s *SnapshotStore) LatestBefore(ctx context.Context, date string) (string, float64, bool, error) {
	var m dailyEquityModel
	err := s.db.WithContext(ctx).
		Where("date < ?", date).
		Order("date DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return m.Date, m.Equity, true, nil
}

// Latest returns the most recent snapshot of all.
func (s *SnapshotStore) Latest(ctx context.Context) (string, float64, bool, error) {
	var m dailyEquityModel
	err := s.db.WithContext(ctx).Order("date DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return m.Date, m.Equity, true, nil
}

// All returns every snapshot in date order, for reporting.
func (s *SnapshotStore) All(ctx context.Context) ([]Snapshot, error) {
	var models []dailyEquityModel
	if err := s.db.WithContext(ctx).Order("date ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(models))
	for _, m := range models {
		out = append(out, Snapshot{Date: m.Date, Equity: m.Equity})
	}
	return out, nil
}

type Snapshot struct {
	Date   string
	Equity float64
}

// Write persists equity for date. A second write for the same date fails with
// ErrSnapshotExists unless overwrite is set, in which case the row is replaced.
func (s *SnapshotStore) Write(ctx context.Context, date string, equity float64, overwrite bool) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("equity: invalid snapshot date %q: %w", date, err)
	}
	m := dailyEquityModel{Date: date, Equity: equity}
	if overwrite {
		return s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "date"}},
				DoUpdates: clause.AssignmentColumns([]string{"equity"}),
			}).
			Create(&m).Error
	}
	_, exists, err := s.Get(ctx, date)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, date)
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Delete removes the snapshot for date. Only the correction framework calls
// this.
func (s *SnapshotStore) Delete(ctx context.Context, date string) error {
	return s.db.WithContext(ctx).Where("date = ?", date).Delete(&dailyEquityModel{}).Error
}
