// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry maps pins to drivers, ensuring there is at most one Driver for
// each pin.
//
// Drivers are created on first request and are never removed.
type Registry struct {
	provider Provider
	options  registryOptions
	logger   *zap.Logger

	// mu covers the drivers map.
	mu      sync.Mutex
	drivers map[pinKey]*Driver
}

// pinKey identifies a pin by chip and offset, ignoring its label.
type pinKey struct {
	chip   string
	offset int
}

func keyOf(p Pin) pinKey {
	return pinKey{strings.TrimPrefix(p.Chip, "/dev/"), p.Offset}
}

// NewRegistry creates a Registry that provisions pins using the Provider.
func NewRegistry(p Provider, options ...RegistryOption) *Registry {
	ro := registryOptions{}
	for _, option := range options {
		option.applyRegistryOption(&ro)
	}
	if ro.logger == nil {
		ro.logger = Logger()
	}
	return &Registry{
		provider: p,
		options:  ro,
		logger:   ro.logger,
		drivers:  map[pinKey]*Driver{},
	}
}

// Get returns the Driver for the pin, creating it if necessary.
//
// The options only apply when the driver is created.  Options passed when the
// driver already exists are ignored, with a warning, and the existing driver
// is returned unchanged.
//
// If the pin is not allowed by the registry the returned error matches
// ErrInvalidConfig and no driver is created.
func (r *Registry) Get(pin Pin, options ...DriverOption) (*Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(pin)
	if d, ok := r.drivers[k]; ok {
		if len(options) > 0 {
			r.logger.Warn("driver already exists, ignoring options",
				zap.String("pin", d.name),
				zap.Int("options", len(options)))
		}
		return d, nil
	}
	if err := r.checkAllowed(pin); err != nil {
		return nil, err
	}
	do := driverOptions{logger: r.logger}
	for _, option := range r.options.defaults {
		option.applyDriverOption(&do)
	}
	for _, option := range options {
		option.applyDriverOption(&do)
	}
	d, err := newDriver(r.canonical(pin), r.provider, do)
	if err != nil {
		return nil, err
	}
	r.drivers[k] = d
	r.logger.Debug("created driver", zap.String("pin", d.name))
	return d, nil
}

// Default returns the Driver for the registry's default pin, creating it if
// necessary.
//
// Returns an error matching ErrInvalidConfig if the registry has no default
// pin.
func (r *Registry) Default(options ...DriverOption) (*Driver, error) {
	if r.options.defaultPin == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "no default pin")
	}
	return r.Get(*r.options.defaultPin, options...)
}

// Lookup returns the Driver for the pin, if one has been created.
func (r *Registry) Lookup(pin Pin) (*Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[keyOf(pin)]
	return d, ok
}

// Drivers returns the drivers created so far, ordered by name.
func (r *Registry) Drivers() []*Driver {
	r.mu.Lock()
	dd := make([]*Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		dd = append(dd, d)
	}
	r.mu.Unlock()
	sort.Slice(dd, func(i, j int) bool {
		return dd[i].name < dd[j].name
	})
	return dd
}

// AllowedPins returns the pins the registry is restricted to, or nil if any
// pin is allowed.
func (r *Registry) AllowedPins() []Pin {
	if r.options.allowed == nil {
		return nil
	}
	return append([]Pin(nil), r.options.allowed...)
}

// Close closes all open drivers.
//
// The drivers remain registered and may be reopened.
func (r *Registry) Close() error {
	var err error
	for _, d := range r.Drivers() {
		err = multierr.Append(err, d.Close())
	}
	return err
}

func (r *Registry) checkAllowed(pin Pin) error {
	if r.options.allowed == nil {
		return nil
	}
	k := keyOf(pin)
	for _, p := range r.options.allowed {
		if keyOf(p) == k {
			return nil
		}
	}
	names := make([]string, len(r.options.allowed))
	for i, p := range r.options.allowed {
		names[i] = p.Name()
	}
	return errors.Wrapf(ErrInvalidConfig, "pin %s is not one of %s",
		pin.Name(), strings.Join(names, ", "))
}

// canonical returns the allowed form of the pin, so drivers are labelled
// consistently however the pin was written.
func (r *Registry) canonical(pin Pin) Pin {
	k := keyOf(pin)
	for _, p := range r.options.allowed {
		if keyOf(p) == k {
			return p
		}
	}
	return pin
}
