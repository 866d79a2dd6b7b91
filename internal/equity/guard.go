package equity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"etfbot/internal/config"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
	"etfbot/internal/marketdata"
)

// TradeLog is the slice of the ledger store the guard needs for its
// replay-derived baseline.
type TradeLog interface {
	ListUpTo(ctx context.Context, cutoff time.Time) ([]ledger.Trade, error)
}

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Get(ctx context.Context, date string) (float64, bool, error)
	LatestBefore(ctx context.Context, date string) (string, float64, bool, error)
}

// GuardInput carries everything the guard evaluates for one proposed write.
type GuardInput struct {
	Date              string
	ProposedEquity    float64
	MissingPriceCodes []string
	// CurrentCash is the live account cash at proposal time, used for the
	// cash-semantics sanity bound.
	CurrentCash    float64
	AllowOverwrite bool
}

// GuardResult is the structured accept/reject outcome. On rejection the
// caller must abort the day's run; Reason is the operator-facing explanation.
type GuardResult struct {
	OK        bool
	Reason    string
	PrevDate  string
	Baseline  float64
	PctChange float64
}

// Guard validates a proposed daily equity figure before it may be persisted.
// The reconciliation baseline is always rebuilt from trade-log replay plus
// prices as of the previous snapshot date; the previously stored equity value
// is never trusted, since it may itself be the product of an earlier bug.
type Guard struct {
	cfg            config.GuardConfig
	initialCapital float64
	trades         TradeLog
	snapshots      SnapshotReader
	prices         marketdata.Provider
}

func NewGuard(cfg config.GuardConfig, initialCapital float64, trades TradeLog, snapshots SnapshotReader, prices marketdata.Provider) *Guard {
	return &Guard{
		cfg:            cfg,
		initialCapital: initialCapital,
		trades:         trades,
		snapshots:      snapshots,
		prices:         prices,
	}
}

func reject(reason string, res GuardResult) GuardResult {
	res.OK = false
	res.Reason = reason
	logger.Errorf("equity guard rejected snapshot: %s", reason)
	return res
}

// Check runs the validation sequence. Each step short-circuits with a
// specific rejection reason; only a run through every gate accepts.
func (g *Guard) Check(ctx context.Context, in GuardInput) (GuardResult, error) {
	var res GuardResult

	// 1. Cash-semantics sanity. Live cash far above the initial capital has
	// historically meant "total equity was written into the cash field".
	if g.initialCapital > 0 && in.CurrentCash > 2*g.initialCapital {
		return reject(fmt.Sprintf("cash %.2f exceeds 2x initial capital %.2f, cash field is suspect",
			in.CurrentCash, g.initialCapital), res), nil
	}

	// 2. Numeric sanity.
	if math.IsNaN(in.ProposedEquity) || math.IsInf(in.ProposedEquity, 0) || in.ProposedEquity <= 0 {
		return reject(fmt.Sprintf("proposed equity %.4f is not a finite positive number", in.ProposedEquity), res), nil
	}

	// 3. Missing prices make the mark-to-market side of the figure fiction.
	if len(in.MissingPriceCodes) > 0 {
		return reject(fmt.Sprintf("unpriceable positions this cycle: %v", in.MissingPriceCodes), res), nil
	}

	// 4. Idempotency.
	if _, exists, err := g.snapshots.Get(ctx, in.Date); err != nil {
		return res, fmt.Errorf("guard: read snapshot for %s: %w", in.Date, err)
	} else if exists && !in.AllowOverwrite {
		return reject(fmt.Sprintf("snapshot for %s already exists and overwrite not requested", in.Date), res), nil
	}

	// 5. Replay-derived baseline from the previous snapshot date.
	prevDate, _, found, err := g.snapshots.LatestBefore(ctx, in.Date)
	if err != nil {
		return res, fmt.Errorf("guard: find previous snapshot before %s: %w", in.Date, err)
	}
	if !found {
		// First snapshot ever: nothing to reconcile against.
		res.OK = true
		res.Reason = "first snapshot, accepted without baseline"
		logger.Infof("equity guard: %s accepted (%s)", in.Date, res.Reason)
		return res, nil
	}
	res.PrevDate = prevDate

	baseline, err := g.replayBaseline(ctx, prevDate)
	if err != nil {
		return reject(fmt.Sprintf("cannot compute baseline for %s: %v", prevDate, err), res), nil
	}
	res.Baseline = baseline
	if baseline <= 0 {
		return reject(fmt.Sprintf("replay baseline for %s is %.4f, not usable", prevDate, baseline), res), nil
	}

	// 6. Day-over-day bound. Large daily swings on ETFs are treated as data
	// corruption, not market moves.
	res.PctChange = math.Abs(in.ProposedEquity-baseline) / baseline * 100
	if res.PctChange > g.cfg.MaxDailyChangePct {
		return reject(fmt.Sprintf("daily change %.2f%% vs baseline %.2f (on %s) exceeds bound %.2f%%",
			res.PctChange, baseline, prevDate, g.cfg.MaxDailyChangePct), res), nil
	}

	res.OK = true
	logger.Infof("equity guard: %s accepted, change %.2f%% vs baseline %.2f on %s",
		in.Date, res.PctChange, baseline, prevDate)
	return res, nil
}

// replayBaseline reconstructs total equity as of the end of prevDate: cash
// from trade-log replay plus every then-open position marked to market at
// prevDate. An unpriceable position fails the baseline, there is no partial
// answer here.
func (g *Guard) replayBaseline(ctx context.Context, prevDate string) (float64, error) {
	day, err := time.Parse(DateLayout, prevDate)
	if err != nil {
		return 0, fmt.Errorf("invalid previous snapshot date %q: %w", prevDate, err)
	}
	cutoff := day.Add(24*time.Hour - time.Nanosecond)

	trades, err := g.trades.ListUpTo(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("load trades up to %s: %w", prevDate, err)
	}
	replay := ledger.Replay(trades, cutoff, g.initialCapital)

	total := replay.Cash
	codes := make([]string, 0, len(replay.Positions))
	for code := range replay.Positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		px, ok, err := g.prices.LatestClose(ctx, code, day)
		if err != nil {
			return 0, fmt.Errorf("price %s as of %s: %w", code, prevDate, err)
		}
		if !ok {
			return 0, fmt.Errorf("no valid price for open position %s as of %s", code, prevDate)
		}
		total += replay.Positions[code] * px
	}
	return total, nil
}
