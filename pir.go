// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package pir is a framework for edge-event driven GPIO input drivers, such as
// the HC-SR501 passive infrared motion sensor.
//
// A Registry maps physical pins to a single Driver each.  Opening a Driver
// provisions the pin as an input, via a Provider, and attaches an edge listener
// that reports each transition to the Driver's Handler.
//
// Supports:
// - At most one driver, and one provisioned line, per pin
// - Idempotent Open and Close
// - Pull-up/pull-down/disabled bias, active-low lines
// - Kernel or software debouncing
// - Inline or queued handler dispatch
// - Containment of handler panics
//
// Example of use:
//
//	r := pir.NewRegistry(cdev.New(), pir.WithAllowedPins(pin))
//	d, err := r.Get(pin, pir.WithHandlerFunc(
//		func(name string, detected bool, t time.Time) {
//			fmt.Println(name, detected, t)
//		}))
//	if err != nil {
//		panic(err)
//	}
//	if err = d.Open(); err != nil {
//		panic(err)
//	}
//	defer d.Close()
package pir

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Pin identifies a physical GPIO line.
//
// Pins are comparable and are used as Registry keys.
type Pin struct {
	// The name of the GPIO chip controlling the line, e.g. "gpiochip0".
	Chip string

	// The offset of the line within the chip.
	Offset int

	// The hardware label for the line, e.g. "GPIO 12".
	Label string
}

// Name returns the name of the pin, being its label with any whitespace
// replaced by underscores.
//
// A pin without a label is named by its chip and offset.
func (p Pin) Name() string {
	if len(p.Label) == 0 {
		return fmt.Sprintf("%s:%d", p.Chip, p.Offset)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, p.Label)
}

// String returns the name of the pin.
func (p Pin) String() string {
	return p.Name()
}

// Name returns the normalized name of the pin.
func Name(p Pin) string {
	return p.Name()
}

// Level is the line level reported by a Provider.
type Level int

const (
	// LevelUnknown indicates a notification without a usable level.
	LevelUnknown Level = iota

	// LevelLow indicates the line is inactive.
	LevelLow

	// LevelHigh indicates the line is active.
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a Driver.
type State int

const (
	// Closed indicates the pin is not provisioned.
	Closed State = iota

	// Open indicates the pin is provisioned and its listener installed.
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Event is a single transition reported to a Handler.
type Event struct {
	// The name of the pin.
	Pin string

	// Detected is true for a transition to the active level.
	Detected bool

	// The wall-clock time the transition was received.
	Time time.Time
}

// Handler receives transitions from a Driver.
//
// Handle is called from the goroutine delivering the transition, so it must not
// block indefinitely.
type Handler interface {
	Handle(pin string, detected bool, t time.Time)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(pin string, detected bool, t time.Time)

// Handle calls f(pin, detected, t).
func (f HandlerFunc) Handle(pin string, detected bool, t time.Time) {
	f(pin, detected, t)
}
