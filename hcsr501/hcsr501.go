// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package hcsr501 provides the pin profile for HC-SR501 PIR motion sensors
// wired to a Raspberry Pi.
//
// The sensor output is high while motion is detected, and is driven, so lines
// are pulled down to hold them low while the sensor is disconnected.
package hcsr501

import (
	"fmt"
	"time"

	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/device/rpi"
	"go.uber.org/zap"
)

// Consumer is the consumer label applied to lines requested for sensors.
const Consumer = "hcsr501"

// TimeFormat is the layout used to render event times.
const TimeFormat = "2006-01-02 15:04:05.000"

var (
	// AllowedPins are the pins a sensor may be connected to.
	AllowedPins = []pir.Pin{
		rpi.GPIO(rpi.GPIO18),
		rpi.GPIO(rpi.GPIO19),
		rpi.GPIO(rpi.GPIO12),
		rpi.GPIO(rpi.GPIO13),
	}

	// DefaultPin is the pin used when none is given.
	DefaultPin = rpi.GPIO(rpi.GPIO12)
)

// NewRegistry creates a Registry restricted to the AllowedPins, with
// DefaultPin as its default.
//
// Drivers default to pulled down lines with the Consumer label.  The options
// are applied after these defaults so may override them, and WithAllowedPins
// replaces the AllowedPins.
func NewRegistry(p pir.Provider, options ...pir.RegistryOption) *pir.Registry {
	return pir.NewRegistry(p, append(RegistryOptions(rpi.Chip), options...)...)
}

// RegistryOptions returns the options restricting a Registry to sensors on
// the header lines of the chip.
func RegistryOptions(chip string) []pir.RegistryOption {
	return []pir.RegistryOption{
		pir.WithAllowedPins(OnChip(chip, AllowedPins...)...),
		pir.WithDefaultPin(OnChip(chip, DefaultPin)[0]),
		pir.WithDriverDefaults(
			pir.WithConsumer(Consumer),
			pir.WithBias(pir.BiasPullDown)),
	}
}

// OnChip returns the pins relocated to the chip.
func OnChip(chip string, pins ...pir.Pin) []pir.Pin {
	pp := make([]pir.Pin, len(pins))
	for i, p := range pins {
		p.Chip = chip
		pp[i] = p
	}
	return pp
}

// Format renders an event in the form "[pin] detected time".
func Format(pin string, detected bool, t time.Time) string {
	return fmt.Sprintf("[%s] %t %s", pin, detected, t.Format(TimeFormat))
}

// LogHandler returns a Handler that logs each event at info level.
func LogHandler(l *zap.Logger) pir.Handler {
	return pir.HandlerFunc(func(pin string, detected bool, t time.Time) {
		l.Info(Format(pin, detected, t))
	})
}
