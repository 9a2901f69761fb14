// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"time"

	"go.uber.org/zap"
)

// RegistryOption defines the interface required to provide a Registry option.
type RegistryOption interface {
	applyRegistryOption(*registryOptions)
}

// DriverOption defines the interface required to provide a Driver option.
type DriverOption interface {
	applyDriverOption(*driverOptions)
}

type registryOptions struct {
	// nil allows any pin.
	allowed    []Pin
	defaultPin *Pin
	logger     *zap.Logger
	defaults   []DriverOption
}

type driverOptions struct {
	handler    Handler
	config     LineConfig
	queued     bool
	queueDepth int
	policy     QueuePolicy
	clock      func() time.Time
	logger     *zap.Logger
}

// AllowedPinsOption restricts the pins a Registry will create drivers for.
type AllowedPinsOption []Pin

// WithAllowedPins restricts the pins a Registry will create drivers for.
//
// Requests for other pins fail with ErrInvalidConfig.
// Without this option any pin is allowed.  A later WithAllowedPins replaces
// the set provided by an earlier one.
func WithAllowedPins(pins ...Pin) AllowedPinsOption {
	return AllowedPinsOption(append([]Pin(nil), pins...))
}

func (o AllowedPinsOption) applyRegistryOption(ro *registryOptions) {
	ro.allowed = append([]Pin{}, o...)
}

// DefaultPinOption sets the pin used by Registry.Default.
type DefaultPinOption Pin

// WithDefaultPin sets the pin used by Registry.Default.
func WithDefaultPin(pin Pin) DefaultPinOption {
	return DefaultPinOption(pin)
}

func (o DefaultPinOption) applyRegistryOption(ro *registryOptions) {
	p := Pin(o)
	ro.defaultPin = &p
}

// DriverDefaultsOption provides options applied to every driver created by a
// Registry, before any options passed to Registry.Get.
type DriverDefaultsOption []DriverOption

// WithDriverDefaults provides options applied to every driver created by a
// Registry.
func WithDriverDefaults(options ...DriverOption) DriverDefaultsOption {
	return DriverDefaultsOption(append([]DriverOption(nil), options...))
}

func (o DriverDefaultsOption) applyRegistryOption(ro *registryOptions) {
	ro.defaults = append(ro.defaults, o...)
}

// LoggerOption sets the logger for a Registry or Driver.
type LoggerOption struct {
	l *zap.Logger
}

// WithLogger sets the logger for a Registry or Driver.
//
// When applied to a Registry it also provides the default logger for the
// drivers it creates.
func WithLogger(l *zap.Logger) LoggerOption {
	return LoggerOption{l}
}

func (o LoggerOption) applyRegistryOption(ro *registryOptions) {
	ro.logger = o.l
}

func (o LoggerOption) applyDriverOption(do *driverOptions) {
	do.logger = o.l
}

// HandlerOption sets the Handler for a Driver.
type HandlerOption struct {
	h Handler
}

// WithHandler sets the Handler for a Driver.
func WithHandler(h Handler) HandlerOption {
	return HandlerOption{h}
}

// WithHandlerFunc sets a function as the Handler for a Driver.
func WithHandlerFunc(f func(pin string, detected bool, t time.Time)) HandlerOption {
	if f == nil {
		return HandlerOption{}
	}
	return HandlerOption{HandlerFunc(f)}
}

func (o HandlerOption) applyDriverOption(do *driverOptions) {
	do.handler = o.h
}

// ConsumerOption defines the consumer label for a line.
type ConsumerOption string

// WithConsumer provides the consumer label reported for the line while it is
// provisioned.
func WithConsumer(consumer string) ConsumerOption {
	return ConsumerOption(consumer)
}

func (o ConsumerOption) applyDriverOption(do *driverOptions) {
	do.config.Consumer = string(o)
}

// BiasOption sets the bias of the line.
type BiasOption Bias

// WithBias sets the bias of the line.
//
// The default is BiasPullDown.
func WithBias(b Bias) BiasOption {
	return BiasOption(b)
}

func (o BiasOption) applyDriverOption(do *driverOptions) {
	do.config.Bias = Bias(o)
}

// ActiveLowOption indicates the line be considered active when the line level
// is low.
type ActiveLowOption struct{}

// WithActiveLow indicates the line be considered active when the line level
// is low, so a low level is reported as detected.
func WithActiveLow() ActiveLowOption {
	return ActiveLowOption{}
}

func (o ActiveLowOption) applyDriverOption(do *driverOptions) {
	do.config.ActiveLow = true
}

// DebounceOption sets the debounce period for the line.
type DebounceOption time.Duration

// WithDebounce indicates a level be reported only once it has been stable for
// the period.
//
// Providers implementing Debouncer debounce the line themselves, otherwise the
// driver debounces in software.  A zero period disables debouncing.
func WithDebounce(period time.Duration) DebounceOption {
	return DebounceOption(period)
}

func (o DebounceOption) applyDriverOption(do *driverOptions) {
	do.config.DebouncePeriod = time.Duration(o)
}

// QueueOption decouples handler calls from notification delivery.
type QueueOption struct {
	depth  int
	policy QueuePolicy
}

// WithQueue indicates events be passed to the handler from a dedicated
// goroutine via a queue of the given depth.
//
// Events for a pin are handled in the order received.  The policy determines
// what happens when the queue is full.
func WithQueue(depth int, policy QueuePolicy) QueueOption {
	return QueueOption{depth, policy}
}

func (o QueueOption) applyDriverOption(do *driverOptions) {
	do.queued = true
	do.queueDepth = o.depth
	do.policy = o.policy
}

// ClockOption sets the source of event timestamps.
type ClockOption func() time.Time

// WithClock sets the source of event timestamps.
//
// The default is time.Now.
func WithClock(clock func() time.Time) ClockOption {
	return ClockOption(clock)
}

func (o ClockOption) applyDriverOption(do *driverOptions) {
	do.clock = o
}
