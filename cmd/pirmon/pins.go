// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/cdev"
	"github.com/warthog618/go-pir/hcsr501"
)

func init() {
	rootCmd.AddCommand(pinsCmd)
}

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List the sensor pins",
	Long: `List the pins a sensor may be connected to.

With the cdev backend the current state of each line is also displayed.`,
	Args: cobra.NoArgs,
	RunE: pins,
}

func pins(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	s, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	var state func(pir.Pin) (cdev.LineState, error)
	if s.Backend == "cdev" {
		state = cdev.State
	}
	printPins(cmd.OutOrStdout(), s.Chip, state)
	return nil
}

func printPins(w io.Writer, chip string, state func(pir.Pin) (cdev.LineState, error)) {
	def := hcsr501.OnChip(chip, hcsr501.DefaultPin)[0]
	for _, p := range hcsr501.OnChip(chip, hcsr501.AllowedPins...) {
		line := fmt.Sprintf("%-8s %s:%d", p.Name(), p.Chip, p.Offset)
		if p == def {
			line += " (default)"
		}
		if state != nil {
			if st, err := state(p); err != nil {
				line += fmt.Sprintf(" - %s", err)
			} else {
				line += fmt.Sprintf(" - %s", st)
			}
		}
		fmt.Fprintln(w, line)
	}
}
