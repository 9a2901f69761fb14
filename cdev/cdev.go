// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package cdev provides a pir Provider using the Linux GPIO character device.
//
// Lines are requested as inputs with edge detection on both edges, and
// debouncing, when requested, is performed by the kernel.
package cdev

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"github.com/warthog618/go-pir"
	"golang.org/x/sys/unix"
)

// DefaultChip is the chip used for pins that do not name one.
const DefaultChip = "gpiochip0"

// ErrBusy indicates the line is already requested, by this or some other
// process.
var ErrBusy = errors.New("line busy")

// Provider requests lines from GPIO character devices.
type Provider struct {
	abi int
}

// Option defines the interface required to provide a Provider option.
type Option interface {
	applyOption(*Provider)
}

// ABIVersionOption selects the version of the GPIO uAPI to use.
type ABIVersionOption int

// WithABIVersion restricts the uAPI version used to request lines.
//
// This is only required for testing older kernels.  By default the latest
// version supported by the kernel is used.
func WithABIVersion(version int) ABIVersionOption {
	return ABIVersionOption(version)
}

func (o ABIVersionOption) applyOption(p *Provider) {
	p.abi = int(o)
}

// New creates a Provider.
func New(options ...Option) *Provider {
	p := &Provider{}
	for _, option := range options {
		option.applyOption(p)
	}
	return p
}

// DebouncesInHardware returns true as debouncing is performed by the kernel.
func (p *Provider) DebouncesInHardware() bool {
	return true
}

// Provision requests the line as an input and reports its edges to notify.
//
// Active low lines are inverted by the kernel, so a rising edge is always a
// transition to active.
func (p *Provider) Provision(pin pir.Pin, cfg pir.LineConfig, notify func(pir.LevelChange)) (pir.Line, error) {
	eh := func(evt gpiocdev.LineEvent) {
		lc := pir.LevelChange{Level: pir.LevelUnknown, Timestamp: evt.Timestamp}
		switch evt.Type {
		case gpiocdev.LineEventRisingEdge:
			lc.Level = pir.LevelHigh
		case gpiocdev.LineEventFallingEdge:
			lc.Level = pir.LevelLow
		}
		notify(lc)
	}
	l, err := gpiocdev.RequestLine(chipOf(pin), pin.Offset, p.lineOptions(cfg, eh)...)
	if err != nil {
		return nil, requestError(pin, err)
	}
	return line{l}, nil
}

// line reports a repeated Close as pir.ErrClosed.
type line struct {
	*gpiocdev.Line
}

func (l line) Close() error {
	err := l.Line.Close()
	if errors.Is(err, gpiocdev.ErrClosed) {
		return pir.ErrClosed
	}
	return err
}

func (p *Provider) lineOptions(cfg pir.LineConfig, eh gpiocdev.EventHandler) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(eh),
	}
	switch cfg.Bias {
	case pir.BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case pir.BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case pir.BiasDisabled:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	if cfg.DebouncePeriod > 0 {
		opts = append(opts, gpiocdev.WithDebounce(cfg.DebouncePeriod))
	}
	if cfg.Consumer != "" {
		opts = append(opts, gpiocdev.WithConsumer(cfg.Consumer))
	}
	if p.abi != 0 {
		opts = append(opts, gpiocdev.ABIVersionOption(p.abi))
	}
	return opts
}

func chipOf(pin pir.Pin) string {
	if pin.Chip == "" {
		return DefaultChip
	}
	return pin.Chip
}

func requestError(pin pir.Pin, err error) error {
	switch {
	case errors.Is(err, unix.EBUSY):
		err = ErrBusy
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		err = gpiocdev.ErrPermissionDenied
	}
	return errors.Wrapf(err, "request %s:%d", chipOf(pin), pin.Offset)
}

// FindPin returns the pin for the named line.
//
// All chips are searched and the first line with a matching name is returned.
func FindPin(name string) (pir.Pin, error) {
	chip, offset, err := gpiocdev.FindLine(name)
	if err != nil {
		return pir.Pin{}, errors.Wrapf(err, "find %s", name)
	}
	return pir.Pin{Chip: chip, Offset: offset, Label: name}, nil
}

// LineState describes the current state of a line as reported by the kernel.
type LineState struct {
	// The name of the line, if it has one.
	Name string

	// The consumer holding the line, if it is requested.
	Consumer string

	// True if the line is requested, or otherwise unavailable.
	Used bool

	// True if the line is active low.
	ActiveLow bool
}

func (s LineState) String() string {
	if !s.Used {
		return "unused"
	}
	if s.Consumer == "" {
		return "used"
	}
	return fmt.Sprintf("used by %q", s.Consumer)
}

// State returns the state of the pin's line.
func State(pin pir.Pin) (LineState, error) {
	c, err := gpiocdev.NewChip(chipOf(pin))
	if err != nil {
		return LineState{}, errors.Wrapf(err, "open %s", chipOf(pin))
	}
	defer c.Close()
	li, err := c.LineInfo(pin.Offset)
	if err != nil {
		return LineState{}, errors.Wrapf(err, "info %s:%d", chipOf(pin), pin.Offset)
	}
	return LineState{
		Name:      li.Name,
		Consumer:  li.Consumer,
		Used:      li.Used,
		ActiveLow: li.Config.ActiveLow,
	}, nil
}
