package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/txengine/internal/types"
)

// PollContext is handed to the probe on every tick of one WaitForConfirmation call.
type PollContext struct {
	Attempts int
	Elapsed  time.Duration
	Network  types.NetworkID
}

// Probe reports the current status of txID. Returning an error wrapped with
// Terminal stops polling immediately; any other error is logged and retried.
type Probe func(ctx context.Context, txID string, pc PollContext) (any, error)

// Confirmer lets a probe return a structured status.
type Confirmer interface {
	IsConfirmed() bool
}

// Confirmation is the result of a successful wait.
type Confirmation struct {
	Confirmed bool
	Status    any
	Elapsed   time.Duration
	Attempts  int
}

type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks a probe error as final: the poller returns it without further ticks.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

type Options struct {
	Timeout  time.Duration
	Interval time.Duration
	Probe    Probe
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option  { return func(o *Options) { o.Timeout = d } }
func WithInterval(d time.Duration) Option { return func(o *Options) { o.Interval = d } }
func WithProbe(p Probe) Option            { return func(o *Options) { o.Probe = p } }

// Recorder receives poll outcomes; metrics.PollerMetrics implements it.
type Recorder interface {
	RecordConfirmation(network string, attempts int, elapsed time.Duration)
	RecordTimeout(network string, attempts int)
}

type Poller struct {
	network  types.NetworkID
	defaults Options
	logger   logrus.FieldLogger
	recorder Recorder
}

func NewPoller(network types.NetworkID, defaults Options, logger logrus.FieldLogger, recorder Recorder) *Poller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Poller{
		network:  network,
		defaults: defaults,
		logger:   logger.WithField("network", network.String()),
		recorder: recorder,
	}
}

// WaitForConfirmation probes txID until it is confirmed or the timeout elapses.
func (p *Poller) WaitForConfirmation(ctx context.Context, txID string, opts ...Option) (*Confirmation, error) {
	o := p.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.Probe == nil {
		return nil, &types.ConfigurationError{Component: "poller", Field: "Probe", Reason: "is required"}
	}
	if o.Timeout <= 0 {
		return nil, &types.ConfigurationError{Component: "poller", Field: "Timeout", Reason: "must be positive"}
	}
	if o.Interval <= 0 {
		return nil, &types.ConfigurationError{Component: "poller", Field: "Interval", Reason: "must be positive"}
	}

	start := time.Now()
	// the deadline bounds in-flight probe calls as well as the sleeps between them
	dctx, cancel := context.WithDeadline(ctx, start.Add(o.Timeout))
	defer cancel()

	var (
		attempts   int
		lastStatus any
	)
	timedOut := func() error {
		if p.recorder != nil {
			p.recorder.RecordTimeout(p.network.String(), attempts)
		}
		return &types.ConfirmationTimeoutError{
			TxID:       txID,
			Network:    p.network,
			Attempts:   attempts,
			Elapsed:    time.Since(start),
			LastStatus: lastStatus,
		}
	}
	interrupted := func() error {
		if ctx.Err() != nil {
			return fmt.Errorf("wait for %s: %w", txID, ctx.Err())
		}
		return timedOut()
	}

	for {
		attempts++
		pc := PollContext{Attempts: attempts, Elapsed: time.Since(start), Network: p.network}

		st, err := o.Probe(dctx, txID, pc)
		if err != nil {
			var term *terminalError
			if errors.As(err, &term) {
				return nil, term.err
			}
			if dctx.Err() != nil {
				return nil, interrupted()
			}
			p.logger.WithFields(logrus.Fields{
				"txHash":   txID,
				"attempts": attempts,
			}).WithError(err).Debug("status probe failed, retrying")
		} else {
			lastStatus = st
			if IsConfirmed(st) {
				elapsed := time.Since(start)
				if p.recorder != nil {
					p.recorder.RecordConfirmation(p.network.String(), attempts, elapsed)
				}
				p.logger.WithFields(logrus.Fields{
					"txHash":   txID,
					"attempts": attempts,
					"elapsed":  elapsed.String(),
				}).Info("transaction confirmed")
				return &Confirmation{Confirmed: true, Status: st, Elapsed: elapsed, Attempts: attempts}, nil
			}
		}

		if dctx.Err() != nil {
			return nil, interrupted()
		}

		timer := time.NewTimer(o.Interval)
		select {
		case <-dctx.Done():
			timer.Stop()
			return nil, interrupted()
		case <-timer.C:
		}
	}
}

var confirmedStatuses = map[string]struct{}{
	"confirmed": {},
	"success":   {},
	"completed": {},
	"ok":        {},
}

// IsConfirmed is the shared "confirmed" predicate: true, a Confirmer reporting
// true, a map with confirmed=true, or one of the success status strings.
func IsConfirmed(st any) bool {
	switch v := st.(type) {
	case nil:
		return false
	case bool:
		return v
	case Confirmer:
		return v.IsConfirmed()
	case string:
		_, ok := confirmedStatuses[strings.ToLower(strings.TrimSpace(v))]
		return ok
	case map[string]any:
		c, ok := v["confirmed"].(bool)
		return ok && c
	default:
		return false
	}
}
