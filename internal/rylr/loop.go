package rylr

import (
	"context"
	"errors"
	"log/slog"
)

// State is the receive loop's lifecycle phase.
type State int

const (
	StateInit State = iota
	StateConfiguring
	StateListening
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfiguring:
		return "configuring"
	case StateListening:
		return "listening"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Sink receives the outcome of every non-empty received line: either a
// decoded Record or the DecodeError describing why the line was rejected.
// The sink owns the Record once handed over.
type Sink interface {
	HandleRecord(Record)
	HandleFailure(*DecodeError)
}

// Loop drives one session: it applies the network key and runs the
// diagnostic script once, then reads, decodes and dispatches lines until
// the context is cancelled. The loop is fully sequential; the blocking read
// is its only suspension point and is bounded by the session's read
// deadline, so cancellation takes effect within one deadline interval.
type Loop struct {
	session *Session
	key     string
	sink    Sink
	logger  *slog.Logger
	state   State
}

// NewLoop builds a loop over an open session. key is the 32-hex-digit
// network key applied during the configuring phase.
func NewLoop(session *Session, key string, sink Sink, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		session: session,
		key:     key,
		sink:    sink,
		logger:  logger,
		state:   StateInit,
	}
}

// State reports the loop's current phase. Not synchronized; read it from
// the goroutine running the loop, or after Run returns.
func (l *Loop) State() State { return l.state }

// Run executes the configuring phase and then listens until ctx is
// cancelled, returning ctx.Err(). Configuration hiccups (a missing key
// acknowledgement, a timed-out diagnostic) are logged and listening starts
// anyway; only transport errors fault the loop. During listening every
// non-empty line produces exactly one sink callback before the next read;
// an empty read is the idle/poll case and produces nothing.
func (l *Loop) Run(ctx context.Context) error {
	l.state = StateConfiguring
	if err := l.configure(); err != nil {
		l.state = StateFaulted
		return err
	}

	l.state = StateListening
	l.logger.Info("listening for telemetry")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := l.session.ReadLine()
		if err != nil {
			l.state = StateFaulted
			return err
		}
		if len(line) == 0 {
			continue
		}

		rec, err := Decode(line)
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				l.sink.HandleFailure(decodeErr)
				continue
			}
			l.state = StateFaulted
			return err
		}
		l.sink.HandleRecord(rec)
	}
}

// configure applies the network key and runs the diagnostic script. Reads
// here are best-effort: a query without a response is reported, not fatal.
func (l *Loop) configure() error {
	ack, err := l.session.ApplyNetworkKey(l.key)
	switch {
	case errors.Is(err, ErrProtocolTimeout):
		l.logger.Warn("network key set: no acknowledgement before deadline")
	case err != nil:
		return err
	default:
		l.logger.Info("network key set", "response", ack)
	}

	diags, err := l.session.RunDiagnostics()
	for _, d := range diags {
		if d.Response == "" {
			l.logger.Warn("diagnostic query timed out", "label", d.Label)
			continue
		}
		l.logger.Info("diagnostic", "label", d.Label, "response", d.Response)
	}
	return err
}
