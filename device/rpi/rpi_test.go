// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package rpi_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/device/rpi"
)

var patterns = []struct {
	name string
	val  int
	err  error
}{
	{"gpio0", 0, rpi.ErrInvalid},
	{"gpio1", 0, rpi.ErrInvalid},
	{"gpio2", 2, nil},
	{"gpio02", 2, nil},
	{"GPIO2", 2, nil},
	{"Gpio2", 2, nil},
	{"gpio27", 27, nil},
	{"gpio28", 0, rpi.ErrInvalid},
	{"J8p0", 0, rpi.ErrInvalid},
	{"J8p1", 0, rpi.ErrInvalid},
	{"J8p2", 0, rpi.ErrInvalid},
	{"j8p3", rpi.J8p3, nil},
	{"J8P3", rpi.J8p3, nil},
	{"J8p3", rpi.J8p3, nil},
	{"J8p4", 0, rpi.ErrInvalid},
	{"J8p5", rpi.J8p5, nil},
	{"J8p6", 0, rpi.ErrInvalid},
	{"J8p7", rpi.J8p7, nil},
	{"J8p8", rpi.J8p8, nil},
	{"J8p9", 0, rpi.ErrInvalid},
	{"J8p10", rpi.J8p10, nil},
	{"J8p11", rpi.J8p11, nil},
	{"J8p12", rpi.J8p12, nil},
	{"J8p13", rpi.J8p13, nil},
	{"J8p14", 0, rpi.ErrInvalid},
	{"J8p15", rpi.J8p15, nil},
	{"J8p16", rpi.J8p16, nil},
	{"J8p17", 0, rpi.ErrInvalid},
	{"J8p18", rpi.J8p18, nil},
	{"J8p19", rpi.J8p19, nil},
	{"J8p20", 0, rpi.ErrInvalid},
	{"J8p21", rpi.J8p21, nil},
	{"J8p22", rpi.J8p22, nil},
	{"J8p23", rpi.J8p23, nil},
	{"J8p24", rpi.J8p24, nil},
	{"J8p25", 0, rpi.ErrInvalid},
	{"J8p26", rpi.J8p26, nil},
	{"J8p27", rpi.J8p27, nil},
	{"J8p28", rpi.J8p28, nil},
	{"J8p29", rpi.J8p29, nil},
	{"J8p30", 0, rpi.ErrInvalid},
	{"J8p31", rpi.J8p31, nil},
	{"J8p32", rpi.J8p32, nil},
	{"J8p33", rpi.J8p33, nil},
	{"J8p34", 0, rpi.ErrInvalid},
	{"J8p35", rpi.J8p35, nil},
	{"J8p36", rpi.J8p36, nil},
	{"J8p37", rpi.J8p37, nil},
	{"J8p38", rpi.J8p38, nil},
	{"J8p39", 0, rpi.ErrInvalid},
	{"J8p40", rpi.J8p40, nil},
	{"0", 0, rpi.ErrInvalid},
	{"02", 2, nil},
	{"2", 2, nil},
	{"27", 27, nil},
	{"40", 0, rpi.ErrInvalid},
	{"gpio", 0, rpi.ErrInvalid},
	{"gpiox", 0, rpi.ErrInvalid},
	{"gpio 12", 12, nil},
	{" GPIO12 ", 12, nil},
	{"-3", 0, rpi.ErrInvalid},
	{"", 0, rpi.ErrInvalid},
}

func TestOffset(t *testing.T) {
	for _, p := range patterns {
		tf := func(t *testing.T) {
			val, err := rpi.Offset(p.name)
			assert.Equal(t, p.err, err)
			assert.Equal(t, p.val, val)
		}
		t.Run(p.name, tf)
	}
}

func TestMustOffset(t *testing.T) {
	for _, p := range patterns {
		tf := func(t *testing.T) {
			if p.err != nil {
				assert.Panics(t, func() {
					rpi.MustOffset(p.name)
				})
			} else {
				val := rpi.MustOffset(p.name)
				assert.Equal(t, p.val, val)
			}
		}
		t.Run(p.name, tf)
	}
}

func TestGPIO(t *testing.T) {
	p := rpi.GPIO(12)
	assert.Equal(t, pir.Pin{Chip: "gpiochip0", Offset: 12, Label: "GPIO 12"}, p)
	assert.Equal(t, "GPIO_12", p.Name())
}

func TestParsePin(t *testing.T) {
	patterns := []struct {
		name string
		pin  pir.Pin
		err  error
	}{
		{"gpio12", rpi.GPIO(12), nil},
		{"GPIO 18", rpi.GPIO(18), nil},
		{"J8p32", rpi.GPIO(12), nil},
		{"13", rpi.GPIO(13), nil},
		{"gpiochip0:19", rpi.GPIO(19), nil},
		{"gpiochip1:5", pir.Pin{Chip: "gpiochip1", Offset: 5}, nil},
		{"/dev/gpiochip2:0", pir.Pin{Chip: "/dev/gpiochip2", Offset: 0}, nil},
		{"gpiochip1:x", pir.Pin{}, rpi.ErrInvalid},
		{":5", pir.Pin{}, rpi.ErrInvalid},
		{"gpio40", pir.Pin{}, rpi.ErrInvalid},
		{"bogus", pir.Pin{}, rpi.ErrInvalid},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			pin, err := rpi.ParsePin(p.name)
			if p.err != nil {
				assert.True(t, errors.Is(err, p.err), err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, p.pin, pin)
		}
		t.Run(p.name, tf)
	}
}
