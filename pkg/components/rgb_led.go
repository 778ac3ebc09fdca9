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

package components

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

const (
	// DefaultRGBFrequency is the PWM frequency of an RGB LED (in Hz)
	DefaultRGBFrequency = 1000
)

// Color of an RGB LED. Every channel is in [0, 1].
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// IsOff returns true when all channels are zero.
func (c Color) IsOff() bool {
	return c.Red == 0 && c.Green == 0 && c.Blue == 0
}

// clamped returns the color with all channels clamped into [0, 1].
func (c Color) clamped() Color {
	return Color{Red: clamp01(c.Red), Green: clamp01(c.Green), Blue: clamp01(c.Blue)}
}

// RGBLEDConfig configures an RGB LED.
type RGBLEDConfig struct {
	Chip     string
	Red      int
	Green    int
	Blue     int
	Consumer string
	// PWM frequency in Hz, defaults to DefaultRGBFrequency
	Frequency float64
}

// RGBLED is a three color LED driven by three soft PWMs.
type RGBLED struct {
	log  zerolog.Logger
	pwms [3]*devices.SoftPWM

	mutex       sync.Mutex
	color       Color
	frequency   float64
	blinkCtx    context.Context
	cancelBlink func()
}

// NewRGBLED opens the three configured lines.
func NewRGBLED(api bridge.API, cfg RGBLEDConfig, log zerolog.Logger) (*RGBLED, error) {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultRGBFrequency
	}
	if cfg.Consumer == "" {
		cfg.Consumer = bridge.DefaultConsumer
	}
	l := &RGBLED{
		frequency: cfg.Frequency,
	}
	for i, offset := range []int{cfg.Red, cfg.Green, cfg.Blue} {
		pwm, err := devices.OpenSoftPWM(api, cfg.Chip, offset, cfg.Frequency, log, devices.WithConsumer(cfg.Consumer))
		if err != nil {
			for _, p := range l.pwms[:i] {
				p.Close()
			}
			return nil, maskAny(err)
		}
		pwm.SetDutyCycle16(0)
		l.pwms[i] = pwm
	}
	l.log = log.With().Str("rgb_led", l.pwms[0].Pin().Line()).Logger()
	return l, nil
}

// Channels returns the soft PWMs of the red, green and blue channel.
func (l *RGBLED) Channels() (red, green, blue *devices.SoftPWM) {
	return l.pwms[0], l.pwms[1], l.pwms[2]
}

// Color returns the configured color.
func (l *RGBLED) Color() Color {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.color
}

// SetColor sets the color, canceling a blink.
// Channel values are clamped into [0, 1].
func (l *RGBLED) SetColor(red, green, blue float64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.stopBlink()
	l.color = Color{Red: red, Green: green, Blue: blue}.clamped()
	return l.apply(l.color)
}

// SetColorPercent sets the color with channels in percent (0-100).
func (l *RGBLED) SetColorPercent(red, green, blue float64) error {
	return l.SetColor(red/100, green/100, blue/100)
}

// Off turns the LED off, canceling a blink.
func (l *RGBLED) Off() error {
	return l.SetColor(0, 0, 0)
}

// Frequency returns the PWM frequency in Hz.
func (l *RGBLED) Frequency() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.frequency
}

// SetFrequency changes the PWM frequency of all channels.
func (l *RGBLED) SetFrequency(hz float64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, p := range l.pwms {
		if err := p.SetFrequency(hz); err != nil {
			return maskAny(err)
		}
	}
	l.frequency = hz
	return nil
}

// Blinking returns true while a blink sequence is active.
func (l *RGBLED) Blinking() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.blinkCtx != nil && l.blinkCtx.Err() == nil
}

// Blink the current color count times in the background,
// interval on and interval off. The LED is off when done.
func (l *RGBLED) Blink(count int, interval time.Duration) error {
	if count <= 0 {
		return errors.Wrapf(devices.InvalidArgumentError, "blink count must be positive, got %d", count)
	}
	n := 0
	return l.blink(interval, func() bool {
		n++
		return n <= count
	})
}

// BlinkFor blinks the current color in the background for the given
// duration, interval on and interval off. The LED is off when done.
func (l *RGBLED) BlinkFor(duration, interval time.Duration) error {
	end := time.Now().Add(duration)
	return l.blink(interval, func() bool {
		return time.Now().Before(end)
	})
}

// blink runs a blink sequence while next returns true.
func (l *RGBLED) blink(interval time.Duration, next func() bool) error {
	if interval <= 0 {
		return errors.Wrapf(devices.InvalidArgumentError, "blink interval must be positive, got %s", interval)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.stopBlink()
	color := l.color
	ctx, cancel := context.WithCancel(context.Background())
	l.blinkCtx = ctx
	l.cancelBlink = cancel
	go func() {
		defer cancel()
		for next() {
			if !l.blinkApply(ctx, color) || !sleepCtx(ctx, interval) {
				return
			}
			if !l.blinkApply(ctx, Color{}) || !sleepCtx(ctx, interval) {
				return
			}
		}
		// Sequence completed
		l.mutex.Lock()
		defer l.mutex.Unlock()
		if ctx.Err() == nil {
			l.color = Color{}
		}
	}()
	return nil
}

// blinkApply shows the given color unless the blink has been canceled.
func (l *RGBLED) blinkApply(ctx context.Context, c Color) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if err := l.apply(c); err != nil {
		l.log.Error().Err(err).Msg("Blink failed")
		return false
	}
	return true
}

// stopBlink cancels an active blink. Requires mutex to be locked.
func (l *RGBLED) stopBlink() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
}

// apply the given color to the PWMs. Requires mutex to be locked.
// Channels at zero are stopped (line low), others are started.
// A channel whose loop has terminated is driven low directly.
func (l *RGBLED) apply(c Color) error {
	var ae aerr.AggregateError
	line := l.pwms[0].Pin().Line()
	for i, v := range []float64{c.Red, c.Green, c.Blue} {
		p := l.pwms[i]
		p.SetDutyCycle16(int(math.Round(v * float64(devices.Resolution16))))
		rgbLedColorGauge.WithLabelValues(line, channelNames[i]).Set(v)
		var err error
		if v == 0 {
			if p.Running() {
				err = p.Stop()
			} else {
				err = p.Pin().Write(0)
			}
		} else {
			err = p.Start()
		}
		if err != nil {
			ae.Add(errors.Wrapf(err, "%s channel", channelNames[i]))
		}
	}
	return ae.AsError()
}

var channelNames = [3]string{"red", "green", "blue"}

// Close cancels a blink, turns the LED off and releases all lines.
func (l *RGBLED) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.stopBlink()
	var ae aerr.AggregateError
	line := l.pwms[0].Pin().Line()
	for i, p := range l.pwms {
		if err := p.Close(); err != nil {
			ae.Add(errors.Wrapf(err, "%s channel", channelNames[i]))
		}
		rgbLedColorGauge.DeleteLabelValues(line, channelNames[i])
	}
	return ae.AsError()
}

func (l *RGBLED) String() string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return fmt.Sprintf("RGBLED(R=%.2f, G=%.2f, B=%.2f, freq=%s)",
		l.color.Red, l.color.Green, l.color.Blue, humanize.SI(l.frequency, "Hz"))
}
