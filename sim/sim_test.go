// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sim_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/sim"
)

var pin = pir.Pin{Chip: "gpiochip0", Offset: 4, Label: "GPIO 4"}

func TestProvision(t *testing.T) {
	s := sim.New()
	var got []pir.Level
	cfg := pir.LineConfig{Consumer: "sim-test", Bias: pir.BiasPullUp}
	l, err := s.Provision(pin, cfg, func(lc pir.LevelChange) {
		got = append(got, lc.Level)
	})
	require.Nil(t, err)
	require.NotNil(t, l)
	assert.True(t, s.Provisioned(pin))
	assert.Equal(t, 1, s.Provisions(pin))
	c, ok := s.Config(pin)
	assert.True(t, ok)
	assert.Equal(t, cfg, c)

	// busy
	l2, err := s.Provision(pin, cfg, func(pir.LevelChange) {})
	assert.Equal(t, sim.ErrBusy, err)
	assert.Nil(t, l2)

	// only changes are reported
	assert.Nil(t, s.Set(pin, pir.LevelLow))
	assert.Nil(t, s.Set(pin, pir.LevelHigh))
	assert.Nil(t, s.Set(pin, pir.LevelHigh))
	assert.Nil(t, s.Set(pin, pir.LevelLow))
	assert.Nil(t, s.Notify(pin, pir.LevelUnknown))
	assert.Equal(t, []pir.Level{pir.LevelHigh, pir.LevelLow, pir.LevelUnknown}, got)

	err = l.Close()
	assert.Nil(t, err)
	assert.False(t, s.Provisioned(pin))
	assert.Equal(t, 1, s.Releases(pin))
	err = l.Close()
	assert.Equal(t, pir.ErrClosed, err)

	// level is retained while not provisioned
	assert.Equal(t, sim.ErrNotProvisioned, s.Set(pin, pir.LevelHigh))
	assert.Equal(t, pir.LevelHigh, s.Level(pin))
	assert.Equal(t, sim.ErrNotProvisioned, s.Notify(pin, pir.LevelHigh))
	assert.Len(t, got, 3)
}

func TestActiveLow(t *testing.T) {
	s := sim.New()
	var got []pir.Level
	l, err := s.Provision(pin, pir.LineConfig{ActiveLow: true}, func(lc pir.LevelChange) {
		got = append(got, lc.Level)
	})
	require.Nil(t, err)
	defer l.Close()
	s.Set(pin, pir.LevelHigh)
	s.Set(pin, pir.LevelLow)
	assert.Equal(t, []pir.Level{pir.LevelLow, pir.LevelHigh}, got)
}

func TestFailures(t *testing.T) {
	s := sim.New()
	cause := errors.New("no access")
	s.FailNext(pin, cause)
	l, err := s.Provision(pin, pir.LineConfig{}, func(pir.LevelChange) {})
	assert.Equal(t, cause, err)
	assert.Nil(t, l)
	assert.Zero(t, s.Provisions(pin))

	l, err = s.Provision(pin, pir.LineConfig{}, func(pir.LevelChange) {})
	require.Nil(t, err)
	s.FailClose(pin, cause)
	assert.Equal(t, cause, l.Close())
	assert.True(t, s.Provisioned(pin))
	assert.Nil(t, l.Close())
	assert.False(t, s.Provisioned(pin))
}

func TestClose(t *testing.T) {
	s := sim.New()
	calls := 0
	l, err := s.Provision(pin, pir.LineConfig{}, func(pir.LevelChange) { calls++ })
	require.Nil(t, err)
	assert.Nil(t, s.Close())
	assert.False(t, s.Provisioned(pin))
	assert.Equal(t, pir.ErrClosed, l.Close())
	assert.Equal(t, pir.ErrClosed, s.Close())
	_, err = s.Provision(pin, pir.LineConfig{}, func(pir.LevelChange) {})
	assert.Equal(t, pir.ErrClosed, err)
	assert.Zero(t, calls)
}

func TestDebouncesInHardware(t *testing.T) {
	assert.False(t, sim.New().DebouncesInHardware())
	assert.True(t, sim.New(sim.WithHardwareDebounce()).DebouncesInHardware())
}
