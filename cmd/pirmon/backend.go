// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/cdev"
	"github.com/warthog618/go-pir/periph"
	"github.com/warthog618/go-pir/rpio"
	"github.com/warthog618/go-pir/sim"
)

var backends = []string{"cdev", "periph", "rpio", "sim"}

// openBackend returns the named provider, and a function to release it.
func openBackend(name string) (pir.Provider, func() error, error) {
	nop := func() error { return nil }
	switch name {
	case "cdev":
		return cdev.New(), nop, nil
	case "periph":
		p, err := periph.New()
		if err != nil {
			return nil, nil, err
		}
		return p, nop, nil
	case "rpio":
		p, err := rpio.Open()
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "sim":
		p := sim.New()
		return p, p.Close, nil
	}
	return nil, nil, errors.Errorf("unknown backend %q, must be one of %v", name, backends)
}

// simulate toggles the simulated pin each period until done is closed.
func simulate(s *sim.Provider, pin pir.Pin, period time.Duration, done <-chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()
	level := pir.LevelHigh
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.Set(pin, level)
			if level == pir.LevelHigh {
				level = pir.LevelLow
			} else {
				level = pir.LevelHigh
			}
		}
	}
}
