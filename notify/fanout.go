package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hasanat/tracker/utils"
)

// Options tune a Fanout.
type Options struct {
	BatchSize int
	Timeout   time.Duration
	Clock     utils.Clock
	Logger    *zap.Logger
}

// Fanout resolves eligible friends and hands messages to the transport in batches.
type Fanout struct {
	dir       Directory
	transport Transport
	batchSize int
	timeout   time.Duration
	clock     utils.Clock
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewFanout creates a fanout. Zero options fall back to batches of 100, a 10s timeout, the
// system clock and a nop logger.
func NewFanout(dir Directory, transport Transport, opts Options) *Fanout {
	f := &Fanout{
		dir:       dir,
		transport: transport,
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if f.batchSize <= 0 || f.batchSize > 100 {
		f.batchSize = 100
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if f.clock == nil {
		f.clock = utils.SystemClock
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Notify dispatches msg in the background and returns immediately.
func (f *Fanout) Notify(actorID uint, category Category, msg Message) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("notification fanout panicked",
					zap.Uint("actor_id", actorID), zap.String("category", string(category)), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		if _, err := f.Deliver(ctx, actorID, category, msg); err != nil {
			f.logger.Warn("notification fanout failed",
				zap.Uint("actor_id", actorID), zap.String("category", string(category)), zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (f *Fanout) Wait() {
	f.wg.Wait()
}

// Deliver runs one fanout synchronously and returns the number of messages accepted by the
// transport. Batch failures are logged and skipped; the first one is also returned.
func (f *Fanout) Deliver(ctx context.Context, actorID uint, category Category, msg Message) (int, error) {
	recipients, err := f.dir.Recipients(ctx, actorID)
	if err != nil {
		return 0, err
	}

	now := f.clock()
	title := utils.Sanitize(msg.Title)
	body := utils.Sanitize(msg.Body)
	data := map[string]string{"category": string(category)}
	for k, v := range msg.Data {
		data[k] = utils.Sanitize(v)
	}

	var pushes []Push
	for _, r := range recipients {
		if !r.Preference.Allows(category) || r.Preference.InQuietHours(now, r.Location) {
			continue
		}
		for _, token := range r.Tokens {
			pushes = append(pushes, Push{To: token, Title: title, Body: body, Data: data, Sound: "default"})
		}
	}

	sent := 0
	var firstErr error
	for start := 0; start < len(pushes); start += f.batchSize {
		end := start + f.batchSize
		if end > len(pushes) {
			end = len(pushes)
		}
		batchID := uuid.NewString()
		receipts, err := f.transport.Send(ctx, batchID, pushes[start:end])
		if err != nil {
			f.logger.Warn("push batch failed", zap.String("batch_id", batchID), zap.Int("size", end-start), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %s: %w", batchID, err)
			}
			continue
		}
		var stale []string
		for _, rc := range receipts {
			switch {
			case rc.Status != ReceiptError:
				sent++
			case rc.Error == ErrorDeviceNotRegistered:
				stale = append(stale, rc.Token)
			default:
				f.logger.Debug("push rejected", zap.String("batch_id", batchID), zap.String("error", rc.Error))
			}
		}
		if len(stale) > 0 {
			if err := f.dir.PruneTokens(ctx, stale); err != nil {
				f.logger.Warn("prune push tokens failed", zap.Int("count", len(stale)), zap.Error(err))
			} else {
				f.logger.Info("pruned unregistered push tokens", zap.Int("count", len(stale)))
			}
		}
	}
	return sent, firstErr
}
