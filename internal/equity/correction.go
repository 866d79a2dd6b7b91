package equity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"etfbot/internal/ledger"
	"etfbot/internal/logger"
)

// The correction framework replaces the pile of one-off repair scripts the
// predecessor system accumulated. Every manual fix to the equity history is
// one declared operation in a YAML manifest, applied with a mandatory
// automatic backup and an audit row, and validated through the guard unless
// explicitly forced.

type Operation struct {
	Date   string  `yaml:"date"`
	Action string  `yaml:"action"` // delete | set | shift
	Value  float64 `yaml:"value"`
	Reason string  `yaml:"reason"`
	// Force bypasses guard validation on a set. Use only when the guard's own
	// baseline is the thing being repaired.
	Force bool `yaml:"force"`
}

type Manifest struct {
	Operations []Operation `yaml:"operations"`
}

func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("correction: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("correction: parse manifest: %w", err)
	}
	if len(m.Operations) == 0 {
		return Manifest{}, fmt.Errorf("correction: manifest has no operations")
	}
	for i, op := range m.Operations {
		if err := validateOperation(op); err != nil {
			return Manifest{}, fmt.Errorf("correction: operation %d: %w", i, err)
		}
	}
	return m, nil
}

func validateOperation(op Operation) error {
	if _, err := time.Parse(DateLayout, op.Date); err != nil {
		return fmt.Errorf("invalid date %q", op.Date)
	}
	switch op.Action {
	case "delete":
	case "set":
		if op.Value <= 0 {
			return fmt.Errorf("set requires a positive value")
		}
	case "shift":
		if op.Value == 0 {
			return fmt.Errorf("shift requires a non-zero delta")
		}
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
	if strings.TrimSpace(op.Reason) == "" {
		return fmt.Errorf("a reason is mandatory")
	}
	return nil
}

type correctionAuditModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	AppliedAt   int64          `gorm:"column:applied_at;not null"`
	Date        string         `gorm:"column:date;not null"`
	Action      string         `gorm:"column:action;not null"`
	Value       float64        `gorm:"column:value"`
	Reason      string         `gorm:"column:reason"`
	BackupTable string         `gorm:"column:backup_table"`
	Payload     datatypes.JSON `gorm:"column:payload"`
}

func (correctionAuditModel) TableName() string {
	return "correction_audit"
}

// Applier executes correction manifests against the trade database.
type Applier struct {
	db        *gorm.DB
	snapshots *SnapshotStore
	trades    TradeLog
	guard     *Guard
	initial   float64
}

func NewApplier(db *ledger.DB, snapshots *SnapshotStore, trades TradeLog, guard *Guard, initialCapital float64) (*Applier, error) {
	if db == nil || db.Gorm() == nil {
		return nil, fmt.Errorf("correction: db not initialised")
	}
	if err := db.Gorm().AutoMigrate(&correctionAuditModel{}); err != nil {
		return nil, err
	}
	return &Applier{
		db:        db.Gorm(),
		snapshots: snapshots,
		trades:    trades,
		guard:     guard,
		initial:   initialCapital,
	}, nil
}

// Apply runs every operation in order, stopping at the first failure.
// Operations already applied stay applied; their backups and audit rows
// record what happened.
func (a *Applier) Apply(ctx context.Context, m Manifest) error {
	for i, op := range m.Operations {
		if err := a.applyOne(ctx, op); err != nil {
			return fmt.Errorf("correction: operation %d (%s %s): %w", i, op.Action, op.Date, err)
		}
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, op Operation) error {
	backup, err := a.backup(ctx, op)
	if err != nil {
		return err
	}
	logger.Infof("correction: %s %s value=%.2f backup=%s reason=%q", op.Action, op.Date, op.Value, backup, op.Reason)

	switch op.Action {
	case "delete":
		if err := a.snapshots.Delete(ctx, op.Date); err != nil {
			return err
		}
	case "set":
		if !op.Force {
			res, err := a.guard.Check(ctx, GuardInput{
				Date:           op.Date,
				ProposedEquity: op.Value,
				CurrentCash:    a.replayedCash(ctx, op.Date),
				AllowOverwrite: true,
			})
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("guard rejected set: %s (use force to override)", res.Reason)
			}
		}
		if err := a.snapshots.Write(ctx, op.Date, op.Value, true); err != nil {
			return err
		}
	case "shift":
		day, _ := time.Parse(DateLayout, op.Date)
		if err := a.db.WithContext(ctx).
			Exec("UPDATE daily_equity SET equity = equity + ? WHERE date >= ?", op.Value, op.Date).Error; err != nil {
			return err
		}
		if err := a.db.WithContext(ctx).
			Exec("UPDATE trades SET cash_after = cash_after + ? WHERE timestamp >= ?", op.Value, day.UnixMilli()).Error; err != nil {
			return err
		}
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	audit := correctionAuditModel{
		ID:          uuid.NewString(),
		AppliedAt:   time.Now().UnixMilli(),
		Date:        op.Date,
		Action:      op.Action,
		Value:       op.Value,
		Reason:      op.Reason,
		BackupTable: backup,
		Payload:     datatypes.JSON(payload),
	}
	return a.db.WithContext(ctx).Create(&audit).Error
}

// backup snapshots the affected tables into timestamped copies before any
// mutation. Shift touches the trade log too, so it gets a second copy.
func (a *Applier) backup(ctx context.Context, op Operation) (string, error) {
	stamp := time.Now().Format("20060102_150405")
	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	name := fmt.Sprintf("daily_equity_backup_%s_%s", stamp, suffix)
	if err := a.db.WithContext(ctx).
		Exec(fmt.Sprintf("CREATE TABLE %q AS SELECT * FROM daily_equity", name)).Error; err != nil {
		return "", fmt.Errorf("backup daily_equity: %w", err)
	}
	if op.Action == "shift" {
		tradeName := fmt.Sprintf("trades_backup_%s_%s", stamp, suffix)
		if err := a.db.WithContext(ctx).
			Exec(fmt.Sprintf("CREATE TABLE %q AS SELECT * FROM trades", tradeName)).Error; err != nil {
			return "", fmt.Errorf("backup trades: %w", err)
		}
		name = name + "," + tradeName
	}
	return name, nil
}

func (a *Applier) replayedCash(ctx context.Context, date string) float64 {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0
	}
	cutoff := day.Add(24*time.Hour - time.Nanosecond)
	trades, err := a.trades.ListUpTo(ctx, cutoff)
	if err != nil {
		return 0
	}
	return ledger.Replay(trades, cutoff, a.initial).Cash
}
