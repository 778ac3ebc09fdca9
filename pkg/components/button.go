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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

const (
	DefaultDebounce          = 30 * time.Millisecond
	DefaultPollInterval      = 5 * time.Millisecond
	DefaultDoubleClickWindow = 400 * time.Millisecond
)

// ButtonEvent identifies an event raised by a button.
type ButtonEvent string

const (
	ButtonPressed       ButtonEvent = "pressed"
	ButtonReleased      ButtonEvent = "released"
	ButtonClicked       ButtonEvent = "clicked"
	ButtonDoubleClicked ButtonEvent = "double_clicked"
	ButtonHeld          ButtonEvent = "held"
)

// ButtonConfig configures a button.
// Zero durations are replaced by their defaults.
type ButtonConfig struct {
	Chip     string
	Offset   int
	Pull     devices.Pull
	Consumer string
	// Time a changed level must be stable before it is accepted
	Debounce time.Duration
	// Time between two samples
	PollInterval time.Duration
	// If set, the monitor raises click and double click events on release
	ClickDetection bool
	// Maximum time between two clicks of a double click
	DoubleClickWindow time.Duration
	// If positive, the monitor raises a held event once the button
	// is pressed for this long
	HoldTime time.Duration
}

func (c ButtonConfig) withDefaults() ButtonConfig {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DoubleClickWindow <= 0 {
		c.DoubleClickWindow = DefaultDoubleClickWindow
	}
	if c.Consumer == "" {
		c.Consumer = bridge.DefaultConsumer
	}
	return c
}

// Button monitors a push button on an input line.
// Callbacks are invoked from the monitor goroutine (or from the goroutine
// calling one of the blocking Wait functions) and must not block.
type Button struct {
	log  zerolog.Logger
	cfg  ButtonConfig
	pin  *devices.DigitalPin
	line string

	mutex         sync.Mutex
	state         bool
	lastErr       error
	closed        bool
	onPress       func()
	onRelease     func()
	onClick       func()
	onDoubleClick func()
	onHeld        func()

	stop chan struct{}
	done chan struct{}
}

// NewButton opens the configured line as input and starts monitoring it.
func NewButton(api bridge.API, cfg ButtonConfig, log zerolog.Logger) (*Button, error) {
	cfg = cfg.withDefaults()
	pin, err := devices.OpenPin(api, cfg.Chip, cfg.Offset, devices.Input,
		devices.WithPull(cfg.Pull), devices.WithConsumer(cfg.Consumer))
	if err != nil {
		return nil, maskAny(err)
	}
	b := &Button{
		log:  log.With().Str("button", pin.Line()).Logger(),
		cfg:  cfg,
		pin:  pin,
		line: pin.Line(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	initial, err := b.IsPressed()
	if err != nil {
		pin.Close()
		return nil, maskAny(err)
	}
	b.state = initial
	buttonPressedGauge.WithLabelValues(b.line).Set(boolToFloat(initial))
	go b.run(initial)
	return b, nil
}

// Pin returns the input pin of the button.
func (b *Button) Pin() *devices.DigitalPin { return b.pin }

// Config returns the configuration of the button (with defaults applied).
func (b *Button) Config() ButtonConfig { return b.cfg }

// IsPressed samples the line and returns true when the button is pressed.
func (b *Button) IsPressed() (bool, error) {
	raw, err := b.pin.Read()
	if err != nil {
		return false, maskAny(err)
	}
	switch b.cfg.Pull {
	case devices.PullUp:
		return raw == 0, nil
	case devices.PullDown:
		return raw == 1, nil
	default:
		return raw != 0, nil
	}
}

// State returns the last stable (debounced) state.
func (b *Button) State() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Err returns the error that terminated the monitor, if any.
func (b *Button) Err() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastErr
}

// SetOnPress sets the callback invoked when the button is pressed.
func (b *Button) SetOnPress(cb func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onPress = cb
}

// SetOnRelease sets the callback invoked when the button is released.
func (b *Button) SetOnRelease(cb func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onRelease = cb
}

// SetOnClick sets the callback invoked when the button is clicked.
func (b *Button) SetOnClick(cb func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onClick = cb
}

// SetOnDoubleClick sets the callback invoked when the button is double clicked.
func (b *Button) SetOnDoubleClick(cb func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onDoubleClick = cb
}

// SetOnHeld sets the callback invoked when the button is held.
func (b *Button) SetOnHeld(cb func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.onHeld = cb
}

// fire invokes the callback for given event (if any).
func (b *Button) fire(event ButtonEvent) {
	b.mutex.Lock()
	var cb func()
	switch event {
	case ButtonPressed:
		cb = b.onPress
	case ButtonReleased:
		cb = b.onRelease
	case ButtonClicked:
		cb = b.onClick
	case ButtonDoubleClicked:
		cb = b.onDoubleClick
	case ButtonHeld:
		cb = b.onHeld
	}
	b.mutex.Unlock()

	buttonEventsTotal.WithLabelValues(b.line, string(event)).Inc()
	b.log.Debug().Str("event", string(event)).Msg("Button event")
	if cb != nil {
		cb()
	}
}

// run the monitor until stopped or a read fails.
func (b *Button) run(stable bool) {
	defer close(b.done)

	var pressedAt, lastClick time.Time
	heldFired := false
	if stable {
		pressedAt = time.Now()
	}
	for {
		if !sleep(b.stop, b.cfg.PollInterval) {
			return
		}
		pressed, err := b.IsPressed()
		if err != nil {
			b.fail(err)
			return
		}
		if pressed != stable {
			// Confirm the change after the debounce interval
			if !sleep(b.stop, b.cfg.Debounce) {
				return
			}
			confirmed, err := b.IsPressed()
			if err != nil {
				b.fail(err)
				return
			}
			if confirmed == stable {
				buttonBouncesTotal.WithLabelValues(b.line).Inc()
				continue
			}
			stable = confirmed
			b.mutex.Lock()
			b.state = stable
			b.mutex.Unlock()
			buttonPressedGauge.WithLabelValues(b.line).Set(boolToFloat(stable))

			if stable {
				pressedAt = time.Now()
				heldFired = false
				b.fire(ButtonPressed)
			} else {
				b.fire(ButtonReleased)
				if b.cfg.ClickDetection {
					now := time.Now()
					b.fire(ButtonClicked)
					if !lastClick.IsZero() && now.Sub(lastClick) <= b.cfg.DoubleClickWindow {
						b.fire(ButtonDoubleClicked)
						lastClick = time.Time{}
					} else {
						lastClick = now
					}
				}
			}
		}
		if stable && !heldFired && b.cfg.HoldTime > 0 && time.Since(pressedAt) >= b.cfg.HoldTime {
			heldFired = true
			b.fire(ButtonHeld)
		}
	}
}

// fail records the error that terminates the monitor.
func (b *Button) fail(err error) {
	b.mutex.Lock()
	b.lastErr = err
	b.mutex.Unlock()
	buttonReadErrorsTotal.WithLabelValues(b.line).Inc()
	b.log.Error().Err(err).Msg("Button monitor failed")
}

// wait polls the button until it reaches the given state.
func (b *Button) wait(ctx context.Context, pressed bool) error {
	for {
		actual, err := b.IsPressed()
		if err != nil {
			return maskAny(err)
		}
		if actual == pressed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.PollInterval):
			// Continue
		}
	}
}

// WaitForPress blocks until the button is pressed, then invokes OnPress.
func (b *Button) WaitForPress(ctx context.Context) error {
	if err := b.wait(ctx, true); err != nil {
		return err
	}
	b.fire(ButtonPressed)
	return nil
}

// WaitForRelease blocks until the button is released, then invokes OnRelease.
func (b *Button) WaitForRelease(ctx context.Context) error {
	if err := b.wait(ctx, false); err != nil {
		return err
	}
	b.fire(ButtonReleased)
	return nil
}

// WaitForClick blocks until the button is pressed and released,
// then invokes OnClick.
func (b *Button) WaitForClick(ctx context.Context) error {
	if err := b.WaitForPress(ctx); err != nil {
		return err
	}
	if err := b.WaitForRelease(ctx); err != nil {
		return err
	}
	b.fire(ButtonClicked)
	return nil
}

// Hold blocks while the button is pressed, for at most the given duration.
// When the duration is reached, OnHeld is invoked and true is returned.
// Returns false when the button is not pressed (anymore).
func (b *Button) Hold(ctx context.Context, d time.Duration) (bool, error) {
	start := time.Now()
	for {
		pressed, err := b.IsPressed()
		if err != nil {
			return false, maskAny(err)
		}
		if !pressed {
			return false, nil
		}
		if time.Since(start) >= d {
			b.fire(ButtonHeld)
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(b.cfg.PollInterval):
			// Continue
		}
	}
}

// Close stops the monitor, invokes OnRelease and releases the line.
// Closing a closed button is a no-op.
func (b *Button) Close() error {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return nil
	}
	b.closed = true
	b.mutex.Unlock()

	close(b.stop)
	<-b.done
	b.mutex.Lock()
	b.state = false
	b.mutex.Unlock()
	b.fire(ButtonReleased)
	buttonPressedGauge.DeleteLabelValues(b.line)
	if err := b.pin.Close(); err != nil {
		return errors.Wrapf(err, "close button %s", b.line)
	}
	return nil
}

// Closed returns true once the button has been closed.
func (b *Button) Closed() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.closed
}
