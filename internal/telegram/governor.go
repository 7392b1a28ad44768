package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
	"github.com/telegate/telegate/internal/metrics"
)

// failure classifications for upstream errors.
const (
	kindTransient = "transient"
	kindFloodWait = "flood_wait"
	kindFatal     = "fatal"
)

const (
	defaultMaxTransient = 3
	defaultMaxFloodWait = 5 * time.Minute
)

// Governor wraps every upstream invocation with the retry policy: bounded
// exponential backoff for transient failures, exact sleeps for FLOOD_WAIT
// demands, immediate propagation for fatal errors. A 401 from the upstream
// additionally invalidates the session before propagating.
type Governor struct {
	session      *SessionManager
	logger       *zap.Logger
	maxTransient int
	maxFloodWait time.Duration

	// sleep is context-aware and injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGovernor(session *SessionManager, logger *zap.Logger) *Governor {
	return &Governor{
		session:      session,
		logger:       logger,
		maxTransient: defaultMaxTransient,
		maxFloodWait: defaultMaxFloodWait,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op under the retry policy. The operation name labels metrics and
// log lines only.
func (g *Governor) Do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.Reset()

	transient := 0
	for {
		err := op(ctx)
		if err == nil {
			metrics.RecordUpstreamCall(operation, "ok")
			return nil
		}
		// Caller-initiated cancellation is not an upstream failure; hand it
		// back without touching session state or the retry budget.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch kind, wait := g.classify(err); kind {
		case kindFloodWait:
			metrics.RecordUpstreamCall(operation, kindFloodWait)
			if wait > g.maxFloodWait {
				g.logger.Warn("flood wait exceeds budget",
					zap.String("operation", operation), zap.Duration("wait", wait))
				return fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, wait)
			}
			g.logger.Info("honoring flood wait",
				zap.String("operation", operation), zap.Duration("wait", wait))
			metrics.RecordRetry(kindFloodWait)
			metrics.RecordFloodWait(wait)
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}

		case kindTransient:
			metrics.RecordUpstreamCall(operation, kindTransient)
			transient++
			if transient > g.maxTransient {
				g.logger.Warn("transient retry budget exhausted",
					zap.String("operation", operation), zap.Error(err))
				return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
			}
			d := bo.NextBackOff()
			g.logger.Debug("retrying transient failure",
				zap.String("operation", operation),
				zap.Int("attempt", transient), zap.Duration("backoff", d), zap.Error(err))
			metrics.RecordRetry(kindTransient)
			if err := g.sleep(ctx, d); err != nil {
				return err
			}

		default:
			metrics.RecordUpstreamCall(operation, kindFatal)
			if isAuthRevoked(err) {
				g.session.Invalidate()
				return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
			}
			return err
		}
	}
}

// classify buckets an upstream error. The returned duration is meaningful
// only for flood-wait errors.
func (g *Governor) classify(err error) (string, time.Duration) {
	if d, ok := tgerr.AsFloodWait(err); ok {
		return kindFloodWait, d
	}
	if rpc, ok := tgerr.As(err); ok {
		// 5xx is an internal upstream fault (RPC_CALL_FAIL and friends) and
		// worth a retry. Anything else is a definitive answer: bad request,
		// revoked auth, inaccessible channel.
		if rpc.Code >= 500 {
			return kindTransient, 0
		}
		return kindFatal, 0
	}
	// A password demand is a definitive answer from the login flow, not a
	// failure.
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return kindFatal, 0
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return kindFatal, 0
	}
	// Everything else is wire-level noise: dropped connections, timeouts
	// inside the transport, DC migrations mid-call.
	return kindTransient, 0
}

// isAuthRevoked reports whether the upstream declared the session dead.
func isAuthRevoked(err error) bool {
	rpc, ok := tgerr.As(err)
	return ok && rpc.Code == 401
}
