// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/environment"
)

const (
	projectName = "gpiodzero"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack

	cmdMain = &cobra.Command{
		Use:          projectName,
		Short:        "Control GPIO lines, LEDs, PWMs and buttons",
		SilenceUsage: true,
	}
	mainArgs struct {
		level      string
		bridgeType string
		chip       string
		consumer   string
	}
)

func init() {
	addCommonFlags(cmdMain.PersistentFlags())
}

// addCommonFlags adds the flags shared by all commands.
func addCommonFlags(f *pflag.FlagSet) {
	f.StringVarP(&mainArgs.level, "level", "l", "info", "Set log level")
	f.StringVarP(&mainArgs.bridgeType, "bridge", "b", "", "Type of bridge to use (cdev|sysfs|virtual), empty to auto detect")
	f.StringVar(&mainArgs.chip, "chip", bridge.DefaultChip, "GPIO chip to use")
	f.StringVar(&mainArgs.consumer, "consumer", bridge.DefaultConsumer, "Consumer label of requested lines")
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger creates a console logger writing to given writers
// (stderr if none) at the level set by --level.
func newLogger(writers ...io.Writer) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if len(writers) > 0 {
		out = writers[0]
	}
	level, err := zerolog.ParseLevel(mainArgs.level)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", mainArgs.level, err)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// newBridge creates the bridge of the given type,
// detecting the type when empty.
func newBridge(bridgeType string, log zerolog.Logger) bridge.API {
	if bridgeType == "" {
		bridgeType = environment.AutoDetectBridgeType(log)
	}
	br, err := bridge.New(bridgeType, log)
	if err != nil {
		Exitf("Failed to initialize bridge: %v\n", err)
	}
	log.Info().Str("bridge", br.Name()).Msg("Using bridge")
	return br
}

// withTerminator returns a context that is canceled on SIGINT/SIGTERM.
func withTerminator(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	listenSignals(log, cancel)
	return ctx, cancel
}

// listenSignals calls cancel on SIGINT/SIGTERM.
func listenSignals(log zerolog.Logger, cancel context.CancelFunc) {
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		log.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
