// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package main implements the device-side onboarding client.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

var flags = flag.NewFlagSet("root", flag.ContinueOnError)

var (
	debug bool
)

func init() {
	flags.BoolVar(&debug, "debug", false, "Run subcommand with debug enabled")
	flags.Usage = usage
	diFlags.Usage = func() {}
	showFlags.Usage = func() {}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `
Usage:
  sdo [global_options] [di|show] [--] [options]

Global options:
%s
Device initialize options:
%s
Show credential options:
%s`, options(flags), options(diFlags), options(showFlags))
}

func options(flags *flag.FlagSet) string {
	oldOutput := flags.Output()
	defer flags.SetOutput(oldOutput)

	var buf bytes.Buffer
	flags.SetOutput(&buf)
	flags.PrintDefaults()

	return buf.String()
}

func main() {
	if err := flags.Parse(os.Args[1:]); err != nil {
		usage()
		os.Exit(1)
	}
	if debug {
		level.Set(slog.LevelDebug)
	}

	sub := flags.Arg(0)
	var args []string
	if flags.NArg() > 1 {
		args = flags.Args()[1:]
		if flags.Arg(1) == "--" {
			args = flags.Args()[2:]
		}
	}

	switch sub {
	case "di":
		if err := diFlags.Parse(args); err != nil {
			usage()
			os.Exit(1)
		}
		if err := deviceInitialize(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "di error: %v\n", err)
			os.Exit(2)
		}
	case "show":
		if err := showFlags.Parse(args); err != nil {
			usage()
			os.Exit(1)
		}
		if err := show(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "show error: %v\n", err)
			os.Exit(2)
		}
	default:
		if sub != "" {
			_, _ = fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		}
		usage()
		os.Exit(1)
	}
}
