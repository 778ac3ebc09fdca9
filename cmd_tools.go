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
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/components"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

var (
	cmdChips = &cobra.Command{
		Use:   "chips",
		Short: "List GPIO chips",
		Args:  cobra.NoArgs,
		Run:   runChips,
	}
	cmdBlink = &cobra.Command{
		Use:   "blink <offset>",
		Short: "Blink an LED connected to a line",
		Args:  cobra.ExactArgs(1),
		Run:   runBlink,
	}
	blinkArgs struct {
		on    time.Duration
		off   time.Duration
		count int
	}
	cmdPWM = &cobra.Command{
		Use:   "pwm <offset>",
		Short: "Run a software PWM on a line",
		Args:  cobra.ExactArgs(1),
		Run:   runPWM,
	}
	pwmArgs struct {
		frequency float64
		ratio     float64
		duration  time.Duration
	}
	cmdButton = &cobra.Command{
		Use:   "button <offset>",
		Short: "Log the events of a button connected to a line",
		Args:  cobra.ExactArgs(1),
		Run:   runButton,
	}
	buttonArgs struct {
		pull           string
		debounce       time.Duration
		clickDetection bool
		holdTime       time.Duration
	}
)

func init() {
	f := cmdBlink.Flags()
	f.DurationVar(&blinkArgs.on, "on", time.Millisecond*500, "Time the LED is on")
	f.DurationVar(&blinkArgs.off, "off", time.Millisecond*500, "Time the LED is off")
	f.IntVar(&blinkArgs.count, "count", 0, "Number of blinks (0 = until interrupted)")

	f = cmdPWM.Flags()
	f.Float64Var(&pwmArgs.frequency, "frequency", 100, "PWM frequency in Hz")
	f.Float64Var(&pwmArgs.ratio, "ratio", 0.5, "Duty ratio (0..1)")
	f.DurationVar(&pwmArgs.duration, "duration", 0, "Time to run (0 = until interrupted)")

	f = cmdButton.Flags()
	f.StringVar(&buttonArgs.pull, "pull", "up", "Pull resistor (up|down|none)")
	f.DurationVar(&buttonArgs.debounce, "debounce", components.DefaultDebounce, "Debounce time")
	f.BoolVar(&buttonArgs.clickDetection, "click-detection", true, "Detect (double) clicks")
	f.DurationVar(&buttonArgs.holdTime, "hold", time.Second, "Hold time (0 to disable)")

	cmdMain.AddCommand(cmdChips, cmdBlink, cmdPWM, cmdButton)
}

func runChips(cmd *cobra.Command, args []string) {
	chips, err := bridge.ListChips()
	if err != nil {
		Exitf("Failed to list chips: %v\n", err)
	}
	if len(chips) == 0 {
		fmt.Println("No GPIO chips found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHIP\tLABEL\tLINES\tUSED")
	for _, c := range chips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Label, humanize.Comma(int64(c.Lines)), humanize.Comma(int64(c.Used)))
	}
	w.Flush()
}

// parseOffset parses the line offset argument.
func parseOffset(arg string) int {
	offset, err := strconv.Atoi(arg)
	if err != nil || offset < 0 {
		Exitf("Invalid line offset '%s'\n", arg)
	}
	return offset
}

func runBlink(cmd *cobra.Command, args []string) {
	log := newLogger()
	offset := parseOffset(args[0])
	br := newBridge(mainArgs.bridgeType, log)
	defer br.Close()

	led, err := components.NewLED(br, mainArgs.chip, offset, log, devices.WithConsumer(mainArgs.consumer))
	if err != nil {
		Exitf("Failed to open LED: %v\n", err)
	}
	defer led.Close()
	ctx, cancel := withTerminator(log)
	defer cancel()

	if err := led.Blink(blinkArgs.on, blinkArgs.off, blinkArgs.count); err != nil {
		Exitf("Failed to blink: %v\n", err)
	}
	log.Info().Str("led", led.String()).Msg("Blinking")
	for led.Blinking() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond * 50):
		}
	}
}

func runPWM(cmd *cobra.Command, args []string) {
	log := newLogger()
	offset := parseOffset(args[0])
	br := newBridge(mainArgs.bridgeType, log)
	defer br.Close()

	pwm, err := devices.OpenSoftPWM(br, mainArgs.chip, offset, pwmArgs.frequency, log, devices.WithConsumer(mainArgs.consumer))
	if err != nil {
		Exitf("Failed to open PWM: %v\n", err)
	}
	defer pwm.Close()
	pwm.SetDutyRatio(pwmArgs.ratio)
	if err := pwm.Start(); err != nil {
		Exitf("Failed to start PWM: %v\n", err)
	}
	log.Info().Str("pwm", pwm.String()).Msg("Running")

	ctx, cancel := withTerminator(log)
	defer cancel()
	var timeout <-chan time.Time
	if pwmArgs.duration > 0 {
		timeout = time.After(pwmArgs.duration)
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	}
	if err := pwm.Stop(); err != nil {
		log.Error().Err(err).Msg("PWM failed")
	}
}

func runButton(cmd *cobra.Command, args []string) {
	log := newLogger()
	offset := parseOffset(args[0])
	pull, err := devices.ParsePull(buttonArgs.pull)
	if err != nil {
		Exitf("%v\n", err)
	}
	br := newBridge(mainArgs.bridgeType, log)
	defer br.Close()

	b, err := components.NewButton(br, components.ButtonConfig{
		Chip:           mainArgs.chip,
		Offset:         offset,
		Pull:           pull,
		Consumer:       mainArgs.consumer,
		Debounce:       buttonArgs.debounce,
		ClickDetection: buttonArgs.clickDetection,
		HoldTime:       buttonArgs.holdTime,
	}, log)
	if err != nil {
		Exitf("Failed to open button: %v\n", err)
	}
	defer b.Close()
	logEvent := func(event components.ButtonEvent) func() {
		return func() {
			log.Info().Str("event", string(event)).Msg("Button event")
		}
	}
	b.SetOnPress(logEvent(components.ButtonPressed))
	b.SetOnRelease(logEvent(components.ButtonReleased))
	b.SetOnClick(logEvent(components.ButtonClicked))
	b.SetOnDoubleClick(logEvent(components.ButtonDoubleClicked))
	b.SetOnHeld(logEvent(components.ButtonHeld))
	log.Info().Str("line", b.Pin().Line()).Bool("pressed", b.State()).Msg("Monitoring button")

	ctx, cancel := withTerminator(log)
	defer cancel()
	<-ctx.Done()
	if err := b.Err(); err != nil {
		log.Error().Err(err).Msg("Button monitor failed")
	}
}
