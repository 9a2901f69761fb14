// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux

// A utility to monitor PIR motion sensors.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pirmon",
	Short: "pirmon is a utility to monitor PIR motion sensors",
	Long:  "pirmon is a utility to monitor HC-SR501 PIR motion sensors connected to GPIO lines",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("backend", "b", "cdev", "the GPIO backend: cdev, periph, rpio or sim")
	pf.StringP("chip", "c", "gpiochip0", "the GPIO chip hosting the header lines")
	pf.String("log-level", "info", "the log level: trace, debug, info, warn or error")
	pf.String("config", "", "a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logErr(rootCmd, err)
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "pirmon: %s\n", err)
}
