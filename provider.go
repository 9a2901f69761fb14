// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import "time"

// Provider provisions pins on a GPIO subsystem.
//
// Implementations are provided by the cdev, periph, rpio and sim packages.
type Provider interface {
	// Provision requests the pin as an input with the given config and starts
	// delivering level changes to notify.
	//
	// notify may be called from any goroutine, but calls for a single line
	// must be serialized.
	Provision(pin Pin, cfg LineConfig, notify func(LevelChange)) (Line, error)
}

// Line is a pin provisioned by a Provider.
type Line interface {
	// Close stops notifications and releases the pin.
	//
	// No notifications are delivered once Close returns.
	Close() error
}

// Debouncer is implemented by providers that can debounce lines themselves.
type Debouncer interface {
	// DebouncesInHardware returns true if LineConfig.DebouncePeriod is applied
	// by the provider.
	DebouncesInHardware() bool
}

// Bias is the pull applied to an input line.
type Bias int

const (
	// BiasPullDown pulls the line low when undriven.
	BiasPullDown Bias = iota

	// BiasPullUp pulls the line high when undriven.
	BiasPullUp

	// BiasDisabled leaves the line floating.
	BiasDisabled

	// BiasAsIs leaves the line bias unchanged.
	BiasAsIs
)

func (b Bias) String() string {
	switch b {
	case BiasPullDown:
		return "pull-down"
	case BiasPullUp:
		return "pull-up"
	case BiasDisabled:
		return "disabled"
	default:
		return "as-is"
	}
}

// LineConfig contains the configuration a Driver requests for its pin.
//
// Lines are always inputs with both edges detected.
type LineConfig struct {
	// The consumer label reported for the line, where supported.
	Consumer string

	// The line bias.
	Bias Bias

	// A flag indicating the line is active low.
	ActiveLow bool

	// The debounce period, or zero if the line is not debounced.
	//
	// Only applied by providers implementing Debouncer.
	DebouncePeriod time.Duration
}

// LevelChange is a raw level-change notification from a Provider.
type LevelChange struct {
	// The level of the line after the change.
	Level Level

	// The provider's timestamp for the change, if available.
	//
	// This is not necessarily wall-clock time.
	Timestamp time.Duration
}
