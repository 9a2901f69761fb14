// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package periph provides a pir Provider using periph.io.
//
// Pins are resolved by name from the periph registry, so the pin label, with
// any whitespace removed, must be a name periph knows, e.g. "GPIO 12" resolves
// to "GPIO12".  Unlabelled pins resolve by their offset.
//
// periph does not debounce, so drivers using this provider debounce in
// software.
package periph

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-pir"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultPollInterval is the default longest period the watcher waits for an
// edge before checking if the line has been closed.
const DefaultPollInterval = 100 * time.Millisecond

// ErrNotFound indicates the pin is not known to periph.
var ErrNotFound = errors.New("pin not found")

// Lookup resolves a pin name to a periph pin.
type Lookup func(name string) gpio.PinIO

// Provider requests pins from periph.
type Provider struct {
	lookup Lookup
	poll   time.Duration
}

// Option defines the interface required to provide a Provider option.
type Option interface {
	applyOption(*Provider)
}

// PollIntervalOption sets the edge wait timeout.
type PollIntervalOption time.Duration

// WithPollInterval sets the longest period the watcher blocks waiting for an
// edge.  This bounds the time taken to close a line.
func WithPollInterval(d time.Duration) PollIntervalOption {
	return PollIntervalOption(d)
}

func (o PollIntervalOption) applyOption(p *Provider) {
	if o > 0 {
		p.poll = time.Duration(o)
	}
}

// New initialises the periph host drivers and returns a Provider that resolves
// pins from the periph registry.
func New(options ...Option) (*Provider, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	return NewWithLookup(gpioreg.ByName, options...), nil
}

// NewWithLookup returns a Provider that resolves pins using lookup.
//
// This does not initialise the periph host.
func NewWithLookup(lookup Lookup, options ...Option) *Provider {
	p := &Provider{lookup: lookup, poll: DefaultPollInterval}
	for _, option := range options {
		option.applyOption(p)
	}
	return p
}

// PinName returns the periph name the pin resolves to.
func PinName(pin pir.Pin) string {
	if name := strings.Join(strings.Fields(pin.Label), ""); name != "" {
		return name
	}
	return strconv.Itoa(pin.Offset)
}

// Provision sets the pin as an input with edge detection and starts watching
// it for edges.
func (p *Provider) Provision(pin pir.Pin, cfg pir.LineConfig, notify func(pir.LevelChange)) (pir.Line, error) {
	name := PinName(pin)
	pio := p.lookup(name)
	if pio == nil {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if err := pio.In(pullOf(cfg.Bias), gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "set %s as input", name)
	}
	l := &line{
		pin:       pio,
		activeLow: cfg.ActiveLow,
		notify:    notify,
		poll:      p.poll,
		start:     time.Now(),
	}
	l.last = l.read()
	l.startWatcher()
	return l, nil
}

func pullOf(b pir.Bias) gpio.Pull {
	switch b {
	case pir.BiasPullUp:
		return gpio.PullUp
	case pir.BiasDisabled:
		return gpio.Float
	case pir.BiasAsIs:
		return gpio.PullNoChange
	default:
		return gpio.PullDown
	}
}

type line struct {
	pin       gpio.PinIO
	activeLow bool
	notify    func(pir.LevelChange)
	poll      time.Duration
	start     time.Time

	// only accessed by the watcher after Provision.
	last pir.Level

	// mu covers the attributes below it.
	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

func (l *line) read() pir.Level {
	high := l.pin.Read() == gpio.High
	if high != l.activeLow {
		return pir.LevelHigh
	}
	return pir.LevelLow
}

func (l *line) startWatcher() {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.watch(l.stop, l.done)
}

func (l *line) watch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !l.pin.WaitForEdge(l.poll) {
			continue
		}
		select {
		case <-stop:
			return
		default:
		}
		lvl := l.read()
		if lvl == l.last {
			continue
		}
		l.last = lvl
		l.notify(pir.LevelChange{Level: lvl, Timestamp: time.Since(l.start)})
	}
}

// Close stops the watcher and halts the pin.
//
// If the pin cannot be halted the watcher is restarted, so the line remains
// usable and Close may be retried.
func (l *line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return pir.ErrClosed
	}
	close(l.stop)
	<-l.done
	if err := l.pin.Halt(); err != nil {
		l.startWatcher()
		return errors.Wrap(err, "halt")
	}
	l.closed = true
	return nil
}
