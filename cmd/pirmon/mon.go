// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/warthog618/go-pir"
	"github.com/warthog618/go-pir/device/rpi"
	"github.com/warthog618/go-pir/hcsr501"
	"github.com/warthog618/go-pir/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	monCmd.Flags().DurationP("debounce", "d", 0, "debounce the line with the given period")
	monCmd.Flags().BoolP("active-low", "l", false, "treat the line as active low")
	monCmd.Flags().Int("queue", 0, "queue up to n events for delivery")
	monCmd.Flags().Bool("drop-oldest", false, "drop the oldest event when the queue is full")
	monCmd.Flags().UintP("num-events", "n", 0, "exit after n events")
	monCmd.Flags().BoolP("quiet", "q", false, "don't display event details")
	monCmd.Flags().Duration("sim-period", 500*time.Millisecond, "the period between simulated transitions")
	monCmd.Flags().MarkHidden("sim-period")
	monCmd.SetHelpTemplate(monCmd.HelpTemplate() + extendedMonHelp)
	rootCmd.AddCommand(monCmd)
}

var extendedMonHelp = `
Pins:
  The pin may be named as GPIOX, J8pX, or X, and must be one of
  GPIO18, GPIO19, GPIO12 or GPIO13.  The default is GPIO12.

Backends:
  cdev:         the Linux GPIO character device
  periph:       periph.io
  rpio:         the Raspberry Pi GPIO registers
  sim:          a simulated sensor

Settings may also be provided by PIRMON_ environment variables, or a
YAML config file.
`

var monCmd = &cobra.Command{
	Use:                   "mon [flags] [pin]",
	Short:                 "Monitor a PIR sensor",
	Long:                  `Wait for motion events from an HC-SR501 sensor and print them to standard output.`,
	Args:                  cobra.MaximumNArgs(1),
	RunE:                  mon,
	DisableFlagsInUseLine: true,
}

func mon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	s, err := loadSettings(cfg)
	if err != nil {
		return err
	}
	logger, err := newLogger(s.LogLevel, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	defer logger.Sync()
	pir.SetLogger(logger)

	pin, err := monPin(s.Chip, args)
	if err != nil {
		return err
	}
	p, release, err := openBackend(s.Backend)
	if err != nil {
		return err
	}
	defer release()

	r := pir.NewRegistry(p, append(hcsr501.RegistryOptions(s.Chip), pir.WithLogger(logger))...)
	defer r.Close()

	evtchan := make(chan pir.Event)
	done := make(chan struct{})
	eh := func(pin string, detected bool, t time.Time) {
		select {
		case evtchan <- pir.Event{Pin: pin, Detected: detected, Time: t}:
		case <-done:
		}
	}
	d, err := r.Get(pin, append(monOpts(s), pir.WithHandlerFunc(eh))...)
	if err != nil {
		return err
	}
	if err = d.Open(); err != nil {
		return err
	}
	defer d.Close()
	defer close(done)
	logger.Info("monitoring", zap.String("pin", d.Name()), zap.String("backend", s.Backend))
	if sp, ok := p.(*sim.Provider); ok {
		go simulate(sp, d.Pin(), s.SimPeriod, done)
	}
	monWait(cmd.OutOrStdout(), evtchan, s)
	return nil
}

func monPin(chip string, args []string) (pir.Pin, error) {
	if len(args) == 0 {
		return hcsr501.OnChip(chip, hcsr501.DefaultPin)[0], nil
	}
	p, err := rpi.ParsePin(args[0])
	if err != nil {
		return p, errors.Wrap(err, "can't parse pin")
	}
	if p.Chip == rpi.Chip {
		p.Chip = chip
	}
	return p, nil
}

func monOpts(s settings) []pir.DriverOption {
	opts := []pir.DriverOption{}
	if s.ActiveLow {
		opts = append(opts, pir.WithActiveLow())
	}
	if s.Debounce > 0 {
		opts = append(opts, pir.WithDebounce(s.Debounce))
	}
	if s.QueueDepth > 0 {
		policy := pir.QueueBlock
		if s.DropOldest {
			policy = pir.QueueDropOldest
		}
		opts = append(opts, pir.WithQueue(s.QueueDepth, policy))
	}
	return opts
}

func monWait(w io.Writer, evtchan <-chan pir.Event, s settings) {
	sigdone := make(chan os.Signal, 1)
	signal.Notify(sigdone, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigdone)
	count := 0
	for {
		select {
		case evt := <-evtchan:
			if !s.Quiet {
				fmt.Fprintln(w, hcsr501.Format(evt.Pin, evt.Detected, evt.Time))
			}
			count++
			if s.Limit > 0 && count >= s.Limit {
				return
			}
		case <-sigdone:
			return
		}
	}
}
