// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package rpi provides naming for the Raspberry Pi J8 header, and maps those
// names to pir pins on the main GPIO chip.
package rpi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/warthog618/go-pir"
)

// Chip is the GPIO chip hosting the J8 header lines.
const Chip = "gpiochip0"

// Convenience mapping from J8 pinouts to BCM pinouts.
const (
	J8p27 = iota
	J8p28
	J8p3
	J8p5
	J8p7
	J8p29
	J8p31
	J8p26
	J8p24
	J8p21
	J8p19
	J8p23
	J8p32
	J8p33
	J8p8
	J8p10
	J8p36
	J8p11
	J8p12
	J8p35
	J8p38
	J8p40
	J8p15
	J8p16
	J8p18
	J8p22
	J8p37
	J8p13
)

// GPIO aliases to J8 pins
const (
	_ = iota
	_
	GPIO2
	GPIO3
	GPIO4
	GPIO5
	GPIO6
	GPIO7
	GPIO8
	GPIO9
	GPIO10
	GPIO11
	GPIO12
	GPIO13
	GPIO14
	GPIO15
	GPIO16
	GPIO17
	GPIO18
	GPIO19
	GPIO20
	GPIO21
	GPIO22
	GPIO23
	GPIO24
	GPIO25
	GPIO26
	GPIO27
	MaxGPIOPin
)

var j8Names = map[string]int{
	"3":  J8p3,
	"5":  J8p5,
	"7":  J8p7,
	"8":  J8p8,
	"10": J8p10,
	"11": J8p11,
	"12": J8p12,
	"13": J8p13,
	"15": J8p15,
	"16": J8p16,
	"18": J8p18,
	"19": J8p19,
	"21": J8p21,
	"22": J8p22,
	"23": J8p23,
	"24": J8p24,
	"26": J8p26,
	"27": J8p27,
	"28": J8p28,
	"29": J8p29,
	"31": J8p31,
	"32": J8p32,
	"33": J8p33,
	"35": J8p35,
	"36": J8p36,
	"37": J8p37,
	"38": J8p38,
	"40": J8p40,
}

// ErrInvalid indicates the pin name does not match a known pin.
var ErrInvalid = errors.New("invalid pin name")

func rangeCheck(s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || v < GPIO2 || v >= MaxGPIOPin {
		return 0, ErrInvalid
	}
	return int(v), nil
}

// Offset maps a pin string name to a BCM line offset.
//
// Pin names are case insensitive and may be of the form J8pX, GPIOX, or X.
func Offset(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "j8p"):
		v, ok := j8Names[s[3:]]
		if !ok {
			return 0, ErrInvalid
		}
		return v, nil
	case strings.HasPrefix(s, "gpio"):
		return rangeCheck(strings.TrimSpace(s[4:]))
	default:
		return rangeCheck(s)
	}
}

// MustOffset converts the string to the corresponding line offset or panics if
// that is not possible.
func MustOffset(s string) int {
	v, err := Offset(s)
	if err != nil {
		panic(err)
	}
	return v
}

// GPIO returns the pin for BCM line n, labelled in the form "GPIO n".
func GPIO(n int) pir.Pin {
	return pir.Pin{Chip: Chip, Offset: n, Label: fmt.Sprintf("GPIO %d", n)}
}

// ParsePin maps a pin name to a pin.
//
// In addition to the forms accepted by Offset, lines on other chips may be
// named in the form chip:offset, e.g. "gpiochip1:5".  Such pins are
// unlabelled.
func ParsePin(s string) (pir.Pin, error) {
	if chip, off, ok := strings.Cut(s, ":"); ok {
		o, err := strconv.ParseUint(off, 10, 16)
		if err != nil || chip == "" {
			return pir.Pin{}, errors.Wrapf(ErrInvalid, "%q", s)
		}
		if chip == Chip {
			return GPIO(int(o)), nil
		}
		return pir.Pin{Chip: chip, Offset: int(o)}, nil
	}
	o, err := Offset(s)
	if err != nil {
		return pir.Pin{}, errors.Wrapf(err, "%q", s)
	}
	return GPIO(o), nil
}
