// Package scheduler runs periodic maintenance against the account store.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/HammerMeetNail/fridgemate/internal/logging"
	"github.com/HammerMeetNail/fridgemate/internal/metrics"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

const sweepTimeout = 30 * time.Second

// Sweeper clears lapsed friend codes on a cron schedule. Redemption already
// rejects expired codes; sweeping keeps the code index small.
type Sweeper struct {
	cron    *cron.Cron
	codes   services.CodeSweeper
	logger  *logging.Logger
	entryID cron.EntryID
}

// New parses schedule (standard five-field or a descriptor such as "@every 5m")
// and registers the sweep job. The job does not run until Start.
func New(codes services.CodeSweeper, schedule string, logger *logging.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logging.New()
	}
	s := &Sweeper{codes: codes, logger: logger}
	s.cron = cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)

	id, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", schedule, err)
	}
	s.entryID = id
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("Friend code sweeper started", map[string]interface{}{
		"next_run": s.cron.Entry(s.entryID).Next,
	})
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever ends first.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce clears expired codes immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	cleared, err := s.codes.ClearExpiredCodes(ctx)
	if err != nil {
		s.logger.Error("Friend code sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}
	metrics.RecordCodesSwept(cleared)
	if cleared > 0 {
		s.logger.Info("Cleared expired friend codes", map[string]interface{}{
			"count":       cleared,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
	return cleared, nil
}

// cronLogger routes cron's key/value logging into the application logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := pairs(keysAndValues)
	fields["error"] = err.Error()
	l.logger.Error("cron: "+msg, fields)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
