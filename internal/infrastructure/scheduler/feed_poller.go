// Package scheduler runs the periodic background jobs of the terminal
// tracking service, currently the upstream ledger-feed poll.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/infrastructure/telemetry"
)

// feedPollLockName is the sync lock name guarding the feed poll. The lock
// backend prefixes it, so only the job name goes here.
const feedPollLockName = "feed_poll"

// FeedMerger pulls the upstream payment feed and merges it into the ledger.
type FeedMerger interface {
	FetchAndMerge(ctx context.Context) (*ledger.MergeResult, error)
}

// ---------------------------------------------------------------------------
// FeedPollerConfig
// ---------------------------------------------------------------------------

// FeedPollerConfig holds configuration for the periodic feed poll.
type FeedPollerConfig struct {
	// Enabled indicates if the poller is active
	Enabled bool
	// PollInterval is how often to pull the upstream feed
	PollInterval time.Duration
	// JobTimeout is the maximum time one poll may run
	JobTimeout time.Duration
	// LockTTL is the sync lock TTL; it must exceed JobTimeout so the lock
	// outlives a poll that runs to its deadline
	LockTTL time.Duration
}

// DefaultFeedPollerConfig returns default configuration. The poller is off
// by default; the bank's branch deployments mostly trigger fetches manually.
func DefaultFeedPollerConfig() FeedPollerConfig {
	return FeedPollerConfig{
		Enabled:      false,
		PollInterval: 30 * time.Minute,
		JobTimeout:   5 * time.Minute,
		LockTTL:      10 * time.Minute,
	}
}

// Validate validates the configuration.
func (c *FeedPollerConfig) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.LockTTL <= c.JobTimeout {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// FeedPoller
// ---------------------------------------------------------------------------

// FeedPoller periodically pulls the upstream payment feed and merges it into
// the ledger. A sync lock keeps concurrent instances from polling at the
// same time, so the upstream proxy only ever sees one session.
type FeedPoller struct {
	config  FeedPollerConfig
	merger  FeedMerger
	lock    shared.SyncLock
	metrics *telemetry.FleetMetrics
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last poll outcome for the system info endpoint
	statsMu      sync.RWMutex
	lastPollAt   time.Time
	lastPollErr  string
	lastAdded    int
	lastUpdated  int
	pollCount    int64
	skippedPolls int64
}

// NewFeedPoller creates a new feed poller. The metrics instance may be nil
// when telemetry is disabled.
func NewFeedPoller(
	config FeedPollerConfig,
	merger FeedMerger,
	lock shared.SyncLock,
	metrics *telemetry.FleetMetrics,
	logger *zap.Logger,
) (*FeedPoller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &FeedPoller{
		config:  config,
		merger:  merger,
		lock:    lock,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Start starts the poll loop. It is a no-op when the poller is disabled.
func (p *FeedPoller) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("Feed poller disabled")
		return nil
	}

	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Feed poller started",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("job_timeout", p.config.JobTimeout),
		zap.Duration("lock_ttl", p.config.LockTTL),
	)

	return nil
}

// Stop stops the poll loop and waits for an in-flight poll to finish.
func (p *FeedPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Feed poller stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Feed poller stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs one poll immediately, outside the regular schedule. The
// sync lock still applies, so a manual trigger never overlaps a scheduled
// poll or a trigger on another instance.
func (p *FeedPoller) TriggerNow(ctx context.Context) error {
	p.mu.Lock()
	running := p.isRunning
	p.mu.Unlock()

	if !running {
		return ErrPollerNotRunning
	}

	p.poll(ctx)
	return nil
}

// runLoop polls on each tick until the context is cancelled.
func (p *FeedPoller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one locked fetch-and-merge cycle.
func (p *FeedPoller) poll(ctx context.Context) {
	acquired, err := p.lock.Acquire(ctx, feedPollLockName, p.config.LockTTL)
	if err != nil {
		p.logger.Error("Failed to acquire feed poll lock", zap.Error(err))
		return
	}
	if !acquired {
		p.logger.Debug("Another instance holds the feed poll lock, skipping")
		p.statsMu.Lock()
		p.skippedPolls++
		p.statsMu.Unlock()
		return
	}
	defer func() {
		if err := p.lock.Release(ctx, feedPollLockName); err != nil {
			p.logger.Warn("Failed to release feed poll lock", zap.Error(err))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	telemetry.WithProfilingLabels(jobCtx, telemetry.JobLabels("feed_poll", nil), func(c context.Context) {
		p.runPoll(c)
	})
}

// runPoll executes the fetch-and-merge and records the outcome.
func (p *FeedPoller) runPoll(ctx context.Context) {
	spanCtx, span := telemetry.StartSpan(ctx, "scheduler.feed_poll")
	defer span.End()

	start := time.Now()
	result, err := p.merger.FetchAndMerge(spanCtx)

	p.statsMu.Lock()
	p.lastPollAt = start
	p.pollCount++
	if err != nil {
		p.lastPollErr = err.Error()
		p.lastAdded = 0
		p.lastUpdated = 0
	} else {
		p.lastPollErr = ""
		p.lastAdded = result.Added
		p.lastUpdated = result.Updated
	}
	p.statsMu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		p.recordFetchResult(ctx, classifyFetchError(err))
		p.logger.Error("Scheduled feed poll failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	telemetry.SetAttributes(span,
		"added", result.Added,
		"updated", result.Updated,
	)
	telemetry.SetOK(span)

	p.recordFetchResult(ctx, telemetry.FeedFetchOK)
	if p.metrics != nil {
		p.metrics.RecordPaymentsMerged(ctx, telemetry.MergeActionAdded, int64(result.Added))
		p.metrics.RecordPaymentsMerged(ctx, telemetry.MergeActionUpdated, int64(result.Updated))
	}

	p.logger.Info("Scheduled feed poll completed",
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (p *FeedPoller) recordFetchResult(ctx context.Context, result telemetry.FeedFetchResult) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordFeedFetch(ctx, result)
}

// classifyFetchError maps a fetch-and-merge error to a feed fetch result.
func classifyFetchError(err error) telemetry.FeedFetchResult {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == shared.CodeUpstreamFormat {
		return telemetry.FeedFetchBadFormat
	}
	return telemetry.FeedFetchUnreachable
}

// Stats returns a snapshot of the poller state for the system info endpoint.
func (p *FeedPoller) Stats() map[string]interface{} {
	p.mu.Lock()
	running := p.isRunning
	p.mu.Unlock()

	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	stats := map[string]interface{}{
		"enabled":       p.config.Enabled,
		"running":       running,
		"poll_interval": p.config.PollInterval.String(),
		"poll_count":    p.pollCount,
		"skipped_polls": p.skippedPolls,
	}

	if !p.lastPollAt.IsZero() {
		stats["last_poll_at"] = p.lastPollAt.Format(time.RFC3339)
		stats["last_added"] = p.lastAdded
		stats["last_updated"] = p.lastUpdated
		if p.lastPollErr != "" {
			stats["last_error"] = p.lastPollErr
		}
	}

	return stats
}
