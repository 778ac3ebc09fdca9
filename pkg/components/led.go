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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

// LED is a single color LED on an output line.
type LED struct {
	log  zerolog.Logger
	pin  *devices.DigitalPin
	line string

	mutex       sync.Mutex
	blinkCtx    context.Context
	cancelBlink func()
}

// NewLED opens given line as output (off).
func NewLED(api bridge.API, chip string, offset int, log zerolog.Logger, opts ...devices.PinOption) (*LED, error) {
	pin, err := devices.OpenPin(api, chip, offset, devices.Output, append(opts, devices.WithInitialValue(0))...)
	if err != nil {
		return nil, maskAny(err)
	}
	ledLitGauge.WithLabelValues(pin.Line()).Set(0)
	return &LED{
		log:  log.With().Str("led", pin.Line()).Logger(),
		pin:  pin,
		line: pin.Line(),
	}, nil
}

// Pin returns the output pin of the LED.
func (l *LED) Pin() *devices.DigitalPin { return l.pin }

// On turns the LED on, canceling a blink.
func (l *LED) On() error {
	return l.Set(true)
}

// Off turns the LED off, canceling a blink.
func (l *LED) Off() error {
	return l.Set(false)
}

// Set turns the LED on/off, canceling a blink.
func (l *LED) Set(on bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.stopBlink()
	return l.write(on)
}

// Toggle the LED, canceling a blink.
func (l *LED) Toggle() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.stopBlink()
	return l.write(l.pin.LastValue() == 0)
}

// IsLit returns true when the LED is on.
func (l *LED) IsLit() bool {
	return l.pin.LastValue() == 1
}

// Blinking returns true while a blink sequence is active.
func (l *LED) Blinking() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.blinkCtx != nil && l.blinkCtx.Err() == nil
}

// Blink the LED in the background: on for onTime, off for offTime,
// count times (0 means until canceled).
// The LED is left off when the sequence completes.
func (l *LED) Blink(onTime, offTime time.Duration, count int) error {
	if onTime <= 0 || offTime <= 0 {
		return errors.Wrapf(devices.InvalidArgumentError, "blink times must be positive, got %s/%s", onTime, offTime)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.pin.Closed() {
		return errors.Wrapf(devices.StateError, "led %s is closed", l.line)
	}
	l.stopBlink()
	ctx, cancel := context.WithCancel(context.Background())
	l.blinkCtx = ctx
	l.cancelBlink = cancel
	ledBlinksTotal.WithLabelValues(l.line).Inc()
	go func() {
		defer cancel()
		for i := 0; count == 0 || i < count; i++ {
			if !l.blinkWrite(ctx, true) || !sleepCtx(ctx, onTime) {
				return
			}
			if !l.blinkWrite(ctx, false) || !sleepCtx(ctx, offTime) {
				return
			}
		}
	}()
	return nil
}

// blinkWrite writes the given state unless the blink has been canceled.
// Returns false when the blink must stop.
func (l *LED) blinkWrite(ctx context.Context, on bool) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if err := l.write(on); err != nil {
		l.log.Error().Err(err).Msg("Blink failed")
		return false
	}
	return true
}

// stopBlink cancels an active blink. Requires mutex to be locked.
func (l *LED) stopBlink() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
}

// write the LED state. Requires mutex to be locked.
func (l *LED) write(on bool) error {
	value := 0
	if on {
		value = 1
	}
	if err := l.pin.Write(value); err != nil {
		return errors.Wrapf(err, "set led %s", l.line)
	}
	ledLitGauge.WithLabelValues(l.line).Set(float64(value))
	return nil
}

// Close cancels a blink, turns the LED off and releases the line.
func (l *LED) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.pin.Closed() {
		return nil
	}
	l.stopBlink()
	l.pin.Write(0)
	ledLitGauge.DeleteLabelValues(l.line)
	return maskAny(l.pin.Close())
}

func (l *LED) String() string {
	return fmt.Sprintf("LED(%s, lit=%t)", l.line, l.IsLit())
}
