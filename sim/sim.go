// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package sim provides an in-process simulated GPIO Provider.
//
// This is intended for testing users of pir without hardware, and for dry
// runs of tools.  Line levels are driven by Set, which delivers notifications
// synchronously on the calling goroutine.
package sim

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-pir"
)

var (
	// ErrBusy indicates the pin is already provisioned.
	ErrBusy = errors.New("line busy")

	// ErrNotProvisioned indicates the pin is not provisioned.
	ErrNotProvisioned = errors.New("line not provisioned")
)

// Provider simulates a GPIO subsystem.
type Provider struct {
	start      time.Time
	hwDebounce bool

	// mu covers the attributes below it.
	mu         sync.Mutex
	lines      map[key]*Line
	levels     map[key]pir.Level
	configs    map[key]pir.LineConfig
	provisions map[key]int
	releases   map[key]int
	failOpen   map[key]error
	failClose  map[key]error
	closed     bool
}

type key struct {
	chip   string
	offset int
}

func keyOf(p pir.Pin) key {
	return key{strings.TrimPrefix(p.Chip, "/dev/"), p.Offset}
}

// Option defines the interface required to provide a Provider option.
type Option interface {
	applyOption(*Provider)
}

// HardwareDebounceOption indicates the provider claims to debounce lines.
type HardwareDebounceOption struct{}

// WithHardwareDebounce indicates the provider claims to debounce lines itself,
// so drivers pass their debounce period through rather than debouncing in
// software.  The period is recorded but not applied.
func WithHardwareDebounce() HardwareDebounceOption {
	return HardwareDebounceOption{}
}

func (o HardwareDebounceOption) applyOption(p *Provider) {
	p.hwDebounce = true
}

// New creates a simulated Provider with all lines low.
func New(options ...Option) *Provider {
	p := &Provider{
		start:      time.Now(),
		lines:      map[key]*Line{},
		levels:     map[key]pir.Level{},
		configs:    map[key]pir.LineConfig{},
		provisions: map[key]int{},
		releases:   map[key]int{},
		failOpen:   map[key]error{},
		failClose:  map[key]error{},
	}
	for _, option := range options {
		option.applyOption(p)
	}
	return p
}

// Line is a provisioned simulated line.
type Line struct {
	p      *Provider
	k      key
	cfg    pir.LineConfig
	notify func(pir.LevelChange)

	// mu is held while notifying, so Close waits for notifications in
	// progress.
	mu     sync.Mutex
	closed bool
}

// Provision requests the pin.
func (p *Provider) Provision(pin pir.Pin, cfg pir.LineConfig, notify func(pir.LevelChange)) (pir.Line, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, pir.ErrClosed
	}
	k := keyOf(pin)
	if err, ok := p.failOpen[k]; ok {
		delete(p.failOpen, k)
		return nil, err
	}
	if _, ok := p.lines[k]; ok {
		return nil, ErrBusy
	}
	l := &Line{p: p, k: k, cfg: cfg, notify: notify}
	p.lines[k] = l
	p.configs[k] = cfg
	p.provisions[k]++
	return l, nil
}

// DebouncesInHardware returns true if the provider was created
// WithHardwareDebounce.
func (p *Provider) DebouncesInHardware() bool {
	return p.hwDebounce
}

// Close releases any lines still provisioned.
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return pir.ErrClosed
	}
	p.closed = true
	ll := make([]*Line, 0, len(p.lines))
	for _, l := range p.lines {
		ll = append(ll, l)
	}
	p.mu.Unlock()
	for _, l := range ll {
		l.release()
	}
	return nil
}

// Set sets the physical level of the pin.
//
// If the level changes and the pin is provisioned, the change is reported to
// the line's listener before Set returns.  Returns ErrNotProvisioned if the
// level was set but there is no listener.
func (p *Provider) Set(pin pir.Pin, level pir.Level) error {
	k := keyOf(pin)
	p.mu.Lock()
	prev, ok := p.levels[k]
	if !ok {
		prev = pir.LevelLow
	}
	p.levels[k] = level
	l := p.lines[k]
	p.mu.Unlock()
	if l == nil {
		return ErrNotProvisioned
	}
	if prev == level {
		return nil
	}
	l.deliver(level)
	return nil
}

// Notify delivers a raw notification to the pin's listener, without changing
// the simulated level.
//
// This allows notifications a real subsystem would rarely produce, such as
// repeated or unknown levels.
func (p *Provider) Notify(pin pir.Pin, level pir.Level) error {
	p.mu.Lock()
	l := p.lines[keyOf(pin)]
	p.mu.Unlock()
	if l == nil {
		return ErrNotProvisioned
	}
	l.deliver(level)
	return nil
}

// Level returns the physical level of the pin.
func (p *Provider) Level(pin pir.Pin) pir.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.levels[keyOf(pin)]; ok {
		return l
	}
	return pir.LevelLow
}

// Provisioned returns true if the pin is currently provisioned.
func (p *Provider) Provisioned(pin pir.Pin) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.lines[keyOf(pin)]
	return ok
}

// Provisions returns the number of times the pin has been provisioned.
func (p *Provider) Provisions(pin pir.Pin) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.provisions[keyOf(pin)]
}

// Releases returns the number of times the pin has been released.
func (p *Provider) Releases(pin pir.Pin) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releases[keyOf(pin)]
}

// Config returns the config the pin was most recently provisioned with.
func (p *Provider) Config(pin pir.Pin) (pir.LineConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.configs[keyOf(pin)]
	return cfg, ok
}

// FailNext causes the next Provision of the pin to fail with err.
func (p *Provider) FailNext(pin pir.Pin, err error) {
	p.mu.Lock()
	p.failOpen[keyOf(pin)] = err
	p.mu.Unlock()
}

// FailClose causes the next Close of the pin's line to fail with err.
func (p *Provider) FailClose(pin pir.Pin, err error) {
	p.mu.Lock()
	p.failClose[keyOf(pin)] = err
	p.mu.Unlock()
}

// Close releases the line.
func (l *Line) Close() error {
	l.p.mu.Lock()
	if err, ok := l.p.failClose[l.k]; ok {
		delete(l.p.failClose, l.k)
		l.p.mu.Unlock()
		return err
	}
	l.p.mu.Unlock()
	if !l.release() {
		return pir.ErrClosed
	}
	return nil
}

func (l *Line) release() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.closed = true
	l.p.mu.Lock()
	if l.p.lines[l.k] == l {
		delete(l.p.lines, l.k)
	}
	l.p.releases[l.k]++
	l.p.mu.Unlock()
	return true
}

func (l *Line) deliver(level pir.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.cfg.ActiveLow {
		switch level {
		case pir.LevelHigh:
			level = pir.LevelLow
		case pir.LevelLow:
			level = pir.LevelHigh
		}
	}
	l.notify(pir.LevelChange{
		Level:     level,
		Timestamp: time.Since(l.p.start),
	})
}
