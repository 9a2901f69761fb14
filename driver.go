// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Driver controls the provisioning of a single pin and reports its
// transitions to a Handler.
//
// Drivers are created by a Registry and live as long as it does.
type Driver struct {
	pin      Pin
	name     string
	provider Provider
	handler  Handler
	config   LineConfig
	queued   bool
	depth    int
	policy   QueuePolicy
	clock    func() time.Time
	logger   *zap.Logger

	// events discarded by a QueueDropOldest queue.
	dropped atomic.Uint64

	// only written with mu held, but read without it.
	state atomic.Int32

	// mu serializes Open and Close, and covers the attributes below it.
	mu   sync.Mutex
	line Line
	sess *session
}

// session holds the per-Open listener state.
type session struct {
	// cleared before the line is released so late notifications are dropped.
	live atomic.Bool
	q    *queue
	db   *debouncer
}

func (s *session) stop() {
	if s.db != nil {
		s.db.stop()
	}
	if s.q != nil {
		s.q.stop()
	}
}

func newDriver(pin Pin, p Provider, do driverOptions) (*Driver, error) {
	if do.config.DebouncePeriod < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "negative debounce period %s", do.config.DebouncePeriod)
	}
	if do.queued {
		if do.queueDepth <= 0 {
			return nil, errors.Wrapf(ErrInvalidConfig, "queue depth %d must be positive", do.queueDepth)
		}
		if do.policy != QueueBlock && do.policy != QueueDropOldest {
			return nil, errors.Wrapf(ErrInvalidConfig, "unknown queue policy %d", do.policy)
		}
	}
	if do.clock == nil {
		do.clock = time.Now
	}
	if do.logger == nil {
		do.logger = Logger()
	}
	name := pin.Name()
	return &Driver{
		pin:      pin,
		name:     name,
		provider: p,
		handler:  do.handler,
		config:   do.config,
		queued:   do.queued,
		depth:    do.queueDepth,
		policy:   do.policy,
		clock:    do.clock,
		logger:   do.logger.With(zap.String("pin", name)),
	}, nil
}

// Pin returns the pin controlled by the driver.
func (d *Driver) Pin() Pin {
	return d.pin
}

// Name returns the normalized name of the pin controlled by the driver.
func (d *Driver) Name() string {
	return d.name
}

// State returns the current state of the driver.
//
// It does not wait for an Open or Close in progress, so it may be called from
// the handler.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// IsOpen returns true if the pin is currently provisioned.
func (d *Driver) IsOpen() bool {
	return d.State() == Open
}

// Dropped returns the number of events discarded by a full QueueDropOldest
// queue.
func (d *Driver) Dropped() uint64 {
	return d.dropped.Load()
}

// Open provisions the pin and starts reporting transitions to the handler.
//
// Opening an open driver has no effect.  If the pin cannot be provisioned the
// returned error matches ErrHardwareAccess and the driver remains closed.
func (d *Driver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger.Debug("before open", zap.Int("useCount", d.useCount()))
	defer func() {
		d.logger.Debug("after open", zap.Int("useCount", d.useCount()))
	}()
	if d.State() == Open {
		return nil
	}
	s := &session{}
	s.live.Store(true)
	notify := func(lc LevelChange) {
		d.onChange(s, lc)
	}
	cfg := d.config
	if cfg.DebouncePeriod > 0 && !debouncesInHardware(d.provider) {
		s.db = newDebouncer(cfg.DebouncePeriod, notify)
		notify = s.db.notify
		cfg.DebouncePeriod = 0
	}
	if d.queued {
		s.q = newQueue(d.depth, d.policy, d.dispatch, &d.dropped)
	}
	l, err := d.provider.Provision(d.pin, cfg, notify)
	if err != nil {
		s.live.Store(false)
		s.stop()
		return newHardwareError("open", d.pin, err)
	}
	d.line = l
	d.sess = s
	d.state.Store(int32(Open))
	d.logger.Info("opened",
		zap.Stringer("bias", cfg.Bias),
		zap.Bool("activeLow", cfg.ActiveLow),
		zap.Duration("debounce", d.config.DebouncePeriod))
	return nil
}

// Close stops reporting transitions and releases the pin.
//
// Closing a closed driver has no effect.  No handler calls are made once Close
// returns, so Close must not be called from the handler itself.  If the pin
// cannot be released the returned error matches ErrHardwareAccess and the
// driver remains open.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger.Debug("before close", zap.Int("useCount", d.useCount()))
	defer func() {
		d.logger.Debug("after close", zap.Int("useCount", d.useCount()))
	}()
	if d.State() == Closed {
		return nil
	}
	s := d.sess
	s.live.Store(false)
	// a line that reports itself closed has already been released.
	if err := d.line.Close(); err != nil && !errors.Is(err, ErrClosed) {
		s.live.Store(true)
		return newHardwareError("close", d.pin, err)
	}
	s.stop()
	d.line = nil
	d.sess = nil
	d.state.Store(int32(Closed))
	d.logger.Info("closed")
	return nil
}

// useCount renders the state in the form of the reference count it replaces.
//
// Assumes d is locked.
func (d *Driver) useCount() int {
	if d.State() == Open {
		return 1
	}
	return 0
}

// onChange is the listener installed on the provisioned line.
func (d *Driver) onChange(s *session, lc LevelChange) {
	if !s.live.Load() {
		return
	}
	t := d.clock()
	trace(d.logger, "level change",
		zap.Stringer("level", lc.Level),
		zap.Duration("timestamp", lc.Timestamp))
	var detected bool
	switch lc.Level {
	case LevelHigh:
		detected = true
	case LevelLow:
		detected = false
	default:
		return
	}
	evt := Event{Pin: d.name, Detected: detected, Time: t}
	if s.q != nil {
		s.q.push(evt)
		return
	}
	d.dispatch(evt)
}

// dispatch calls the handler, containing any panic.
func (d *Driver) dispatch(evt Event) {
	if d.handler == nil {
		d.logger.Debug("no handler", zap.Bool("detected", evt.Detected))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := &HandlerError{Pin: evt.Pin, Value: r}
			d.logger.Error("handler failed", zap.Error(err))
		}
	}()
	d.handler.Handle(evt.Pin, evt.Detected, evt.Time)
}

func debouncesInHardware(p Provider) bool {
	db, ok := p.(Debouncer)
	return ok && db.DebouncesInHardware()
}
