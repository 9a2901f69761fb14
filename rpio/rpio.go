// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package rpio provides a pir Provider that drives the Raspberry Pi GPIO
// registers directly using go-rpio.
//
// The registers latch edges rather than interrupting, so lines are polled.
// Only the main GPIO chip is supported.
package rpio

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	gorpio "github.com/stianeikeland/go-rpio/v4"
	"github.com/warthog618/go-pir"
	"go.uber.org/multierr"
)

const (
	// Chip is the only chip provided.
	Chip = "gpiochip0"

	// MaxOffset is the highest BCM line offset.
	MaxOffset = 53

	// DefaultPollInterval is the default period between checks for latched
	// edges.
	DefaultPollInterval = 10 * time.Millisecond
)

var (
	// ErrBusy indicates the pin is already provisioned.
	ErrBusy = errors.New("line busy")

	// ErrInvalidPin indicates the pin is not one provided by the BCM GPIO
	// registers.
	ErrInvalidPin = errors.New("invalid pin")
)

// Pin is the subset of the go-rpio pin used by the Provider.
type Pin interface {
	Input()
	PullUp()
	PullDown()
	PullOff()
	Detect(edge gorpio.Edge)
	EdgeDetected() bool
	Read() gorpio.State
}

// Provider provisions lines from the memory mapped GPIO registers.
type Provider struct {
	pinOf  func(offset int) Pin
	unmap  func() error
	poll   time.Duration
	mu     sync.Mutex
	lines  map[int]*line
	closed bool
}

// Option defines the interface required to provide a Provider option.
type Option interface {
	applyOption(*Provider)
}

// PollIntervalOption sets the period between checks for latched edges.
type PollIntervalOption time.Duration

// WithPollInterval sets the period between checks for latched edges.
func WithPollInterval(d time.Duration) PollIntervalOption {
	return PollIntervalOption(d)
}

func (o PollIntervalOption) applyOption(p *Provider) {
	if o > 0 {
		p.poll = time.Duration(o)
	}
}

// Open maps the GPIO registers and returns a Provider using them.
//
// The Provider should be closed when no longer required to unmap the
// registers.
func Open(options ...Option) (*Provider, error) {
	if err := gorpio.Open(); err != nil {
		return nil, errors.Wrap(err, "map gpio registers")
	}
	p := NewWithPins(func(offset int) Pin {
		return gorpio.Pin(offset)
	}, options...)
	p.unmap = gorpio.Close
	return p, nil
}

// NewWithPins returns a Provider that accesses lines using pinOf.
func NewWithPins(pinOf func(offset int) Pin, options ...Option) *Provider {
	p := &Provider{
		pinOf: pinOf,
		poll:  DefaultPollInterval,
		lines: map[int]*line{},
	}
	for _, option := range options {
		option.applyOption(p)
	}
	return p
}

// Provision sets the pin as an input with edge detection and starts polling
// it for edges.
func (p *Provider) Provision(pin pir.Pin, cfg pir.LineConfig, notify func(pir.LevelChange)) (pir.Line, error) {
	if chip := strings.TrimPrefix(pin.Chip, "/dev/"); chip != Chip && chip != "" {
		return nil, errors.Wrapf(ErrInvalidPin, "chip %s", pin.Chip)
	}
	if pin.Offset < 0 || pin.Offset > MaxOffset {
		return nil, errors.Wrapf(ErrInvalidPin, "offset %d", pin.Offset)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, pir.ErrClosed
	}
	if _, ok := p.lines[pin.Offset]; ok {
		return nil, errors.Wrapf(ErrBusy, "offset %d", pin.Offset)
	}
	rp := p.pinOf(pin.Offset)
	rp.Input()
	switch cfg.Bias {
	case pir.BiasPullDown:
		rp.PullDown()
	case pir.BiasPullUp:
		rp.PullUp()
	case pir.BiasDisabled:
		rp.PullOff()
	}
	rp.Detect(gorpio.AnyEdge)
	l := &line{
		p:         p,
		offset:    pin.Offset,
		pin:       rp,
		activeLow: cfg.ActiveLow,
		notify:    notify,
		start:     time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	l.last = l.read()
	p.lines[pin.Offset] = l
	go l.watch(p.poll)
	return l, nil
}

// Close releases any lines still provisioned and unmaps the registers.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return pir.ErrClosed
	}
	p.closed = true
	ll := make([]*line, 0, len(p.lines))
	for _, l := range p.lines {
		ll = append(ll, l)
	}
	p.mu.Unlock()
	var err error
	for _, l := range ll {
		err = multierr.Append(err, l.Close())
	}
	if p.unmap != nil {
		err = multierr.Append(err, p.unmap())
	}
	return err
}

type line struct {
	p         *Provider
	offset    int
	pin       Pin
	activeLow bool
	notify    func(pir.LevelChange)
	start     time.Time

	// only accessed by the watcher after Provision.
	last pir.Level

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func (l *line) read() pir.Level {
	high := l.pin.Read() == gorpio.High
	if high != l.activeLow {
		return pir.LevelHigh
	}
	return pir.LevelLow
}

func (l *line) watch(period time.Duration) {
	defer close(l.done)
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			if !l.pin.EdgeDetected() {
				continue
			}
			lvl := l.read()
			if lvl == l.last {
				continue
			}
			l.last = lvl
			l.notify(pir.LevelChange{Level: lvl, Timestamp: time.Since(l.start)})
		}
	}
}

// Close stops polling and disables edge detection on the line.
func (l *line) Close() error {
	err := pir.ErrClosed
	l.closeOnce.Do(func() {
		close(l.stop)
		<-l.done
		l.pin.Detect(gorpio.NoEdge)
		l.p.mu.Lock()
		delete(l.p.lines, l.offset)
		l.p.mu.Unlock()
		err = nil
	})
	return err
}
