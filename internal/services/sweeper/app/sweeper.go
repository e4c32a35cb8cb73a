package app

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/platform/id"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	"github.com/louisbranch/arena/internal/platform/timeouts"
	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
)

const (
	defaultInterval  = 10 * time.Second
	defaultBatchSize = 50
)

// ArenaClient is the slice of the arena API the sweeper calls.
type ArenaClient interface {
	ListStalledSessions(ctx context.Context, in *arenaservice.ListStalledSessionsRequest, opts ...grpc.CallOption) (*arenaservice.ListSessionsResponse, error)
	ForceResolve(ctx context.Context, in *arenaservice.ForceResolveRequest, opts ...grpc.CallOption) (*arenaservice.RoundResponse, error)
}

// Config controls the sweep loop.
type Config struct {
	Interval  time.Duration
	BatchSize int
	// RequestTimeout bounds each arena call.
	RequestTimeout time.Duration
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = timeouts.GRPCRequest
	}
	return c
}

// Report summarizes one sweep.
type Report struct {
	Stalled int
	Forced  int
	// Skipped counts sessions another caller resolved first.
	Skipped int
	Failed  int
}

// Sweeper force-resolves stalled rounds.
type Sweeper struct {
	client ArenaClient
	cfg    Config
	logf   func(string, ...any)
	newID  func() (string, error)
}

// New creates a Sweeper. A nil logf logs through the standard logger.
func New(client ArenaClient, cfg Config, logf func(string, ...any)) *Sweeper {
	if logf == nil {
		logf = log.Printf
	}
	return &Sweeper{client: client, cfg: cfg.normalized(), logf: logf, newID: id.NewID}
}

// Run sweeps immediately and then on every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.client == nil {
		return errors.New("arena client is required")
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logf("sweep: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce lists one batch of stalled sessions and forces each of them.
// Sessions that are no longer stalled when forced are skipped, not failed.
func (s *Sweeper) SweepOnce(ctx context.Context) (Report, error) {
	var report Report
	requestID, err := s.newID()
	if err != nil {
		return report, err
	}
	ctx = requestctx.WithRequestID(ctx, requestID)

	listCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	stalled, err := s.client.ListStalledSessions(listCtx, &arenaservice.ListStalledSessionsRequest{Limit: int32(s.cfg.BatchSize)})
	cancel()
	if err != nil {
		return report, err
	}
	report.Stalled = len(stalled.Sessions)

	for _, sess := range stalled.Sessions {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		resp, err := s.client.ForceResolve(callCtx, &arenaservice.ForceResolveRequest{SessionID: sess.ID})
		cancel()
		switch {
		case err == nil:
			report.Forced++
			s.logf("forced session %s round %d outcome=%s winner=%s", sess.ID, resp.Round.Number, resp.Round.Outcome, resp.Session.Winner)
		case isBenign(err):
			report.Skipped++
		default:
			report.Failed++
			s.logf("force resolve %s: %v", sess.ID, err)
		}
	}
	if report.Stalled > 0 {
		s.logf("sweep request_id=%s stalled=%d forced=%d skipped=%d failed=%d", requestID, report.Stalled, report.Forced, report.Skipped, report.Failed)
	}
	return report, nil
}

// isBenign reports whether a force failed because the round moved on.
func isBenign(err error) bool {
	appErr := apperrors.FromGRPCStatus(err)
	if appErr == nil {
		return false
	}
	switch appErr.Code {
	case apperrors.CodeNotTimedOut, apperrors.CodeInvalidForceResolve:
		return true
	default:
		return false
	}
}
