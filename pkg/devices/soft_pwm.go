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

package devices

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/bridge"
)

// Resolution is the denominator of a duty cycle.
type Resolution int

const (
	Resolution8  Resolution = 255
	Resolution10 Resolution = 1023
	Resolution12 Resolution = 4095
	Resolution16 Resolution = 65535
)

// Bits returns the number of bits of the resolution.
func (r Resolution) Bits() int {
	switch r {
	case Resolution8:
		return 8
	case Resolution10:
		return 10
	case Resolution12:
		return 12
	case Resolution16:
		return 16
	default:
		return 0
	}
}

// valid returns true for the supported resolutions.
func (r Resolution) valid() bool {
	return r.Bits() != 0
}

// ResolutionFromBits returns the resolution with given number of bits (8|10|12|16).
func ResolutionFromBits(bits int) (Resolution, error) {
	switch bits {
	case 8:
		return Resolution8, nil
	case 10:
		return Resolution10, nil
	case 12:
		return Resolution12, nil
	case 16:
		return Resolution16, nil
	default:
		return 0, errors.Wrapf(InvalidArgumentError, "unsupported resolution %d bits (8|10|12|16)", bits)
	}
}

// MaxPWMPeriod is the longest period of a soft PWM.
// Lower frequencies run at this period.
const MaxPWMPeriod = 24 * time.Hour

// SoftPWM generates a pulse width modulated signal on an output pin
// by toggling it from a goroutine.
type SoftPWM struct {
	log zerolog.Logger
	pin *DigitalPin

	mutex      sync.Mutex
	frequency  float64
	duty       int
	resolution Resolution
	running    bool
	closed     bool
	stop       chan struct{}
	done       chan struct{}
	lastErr    error
}

// NewSoftPWM creates a soft PWM on given output pin.
// The PWM owns the pin from then on.
func NewSoftPWM(pin *DigitalPin, frequencyHz float64, log zerolog.Logger) (*SoftPWM, error) {
	if pin == nil || pin.Direction() != Output {
		return nil, errors.Wrap(StateError, "soft PWM requires an output pin")
	}
	if pin.Closed() {
		return nil, errors.Wrapf(StateError, "pin %s is closed", pin.Line())
	}
	if !(frequencyHz > 0) {
		return nil, errors.Wrapf(StateError, "frequency must be positive, got %v", frequencyHz)
	}
	return &SoftPWM{
		log:        log.With().Str("pwm", pin.Line()).Logger(),
		pin:        pin,
		frequency:  frequencyHz,
		resolution: Resolution8,
	}, nil
}

// OpenSoftPWM opens given line as output (low) and creates a soft PWM on it.
func OpenSoftPWM(api bridge.API, chip string, offset int, frequencyHz float64, log zerolog.Logger, opts ...PinOption) (*SoftPWM, error) {
	pin, err := OpenPin(api, chip, offset, Output, append(opts, WithInitialValue(0))...)
	if err != nil {
		return nil, maskAny(err)
	}
	p, err := NewSoftPWM(pin, frequencyHz, log)
	if err != nil {
		pin.Close()
		return nil, maskAny(err)
	}
	return p, nil
}

// Pin returns the output pin of the PWM.
func (p *SoftPWM) Pin() *DigitalPin { return p.pin }

// Frequency returns the frequency in Hz.
func (p *SoftPWM) Frequency() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.frequency
}

// SetFrequency changes the frequency, effective from the next period.
func (p *SoftPWM) SetFrequency(hz float64) error {
	if !(hz > 0) {
		return errors.Wrapf(StateError, "frequency must be positive, got %v", hz)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.frequency = hz
	return nil
}

// Resolution returns the denominator of the duty cycle.
func (p *SoftPWM) Resolution() Resolution {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.resolution
}

// DutyCycle returns the numerator of the duty cycle.
func (p *SoftPWM) DutyCycle() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.duty
}

// DutyRatio returns the duty cycle as a fraction in [0, 1].
func (p *SoftPWM) DutyRatio() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return float64(p.duty) / float64(p.resolution)
}

// SetDutyCycle sets the duty cycle to value/res.
// The value is clamped into [0, res].
func (p *SoftPWM) SetDutyCycle(res Resolution, value int) error {
	if !res.valid() {
		return errors.Wrapf(InvalidArgumentError, "unsupported resolution %d", res)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.resolution = res
	p.duty = clamp(value, 0, int(res))
	pwmDutyRatioGauge.WithLabelValues(p.pin.Line()).Set(float64(p.duty) / float64(res))
	return nil
}

// SetDutyCycle8 sets an 8-bit duty cycle (0-255).
func (p *SoftPWM) SetDutyCycle8(value int) { p.SetDutyCycle(Resolution8, value) }

// SetDutyCycle10 sets a 10-bit duty cycle (0-1023).
func (p *SoftPWM) SetDutyCycle10(value int) { p.SetDutyCycle(Resolution10, value) }

// SetDutyCycle12 sets a 12-bit duty cycle (0-4095).
func (p *SoftPWM) SetDutyCycle12(value int) { p.SetDutyCycle(Resolution12, value) }

// SetDutyCycle16 sets a 16-bit duty cycle (0-65535).
func (p *SoftPWM) SetDutyCycle16(value int) { p.SetDutyCycle(Resolution16, value) }

// SetDutyRatio sets the duty cycle as a fraction of the current resolution.
func (p *SoftPWM) SetDutyRatio(ratio float64) {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	res := p.Resolution()
	p.SetDutyCycle(res, int(math.Round(ratio*float64(res))))
}

// Timings returns the on, off and total time of a single period
// for the current configuration.
func (p *SoftPWM) Timings() (on, off, period time.Duration) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.timings()
}

// timings computes on, off and period. Requires mutex to be locked.
func (p *SoftPWM) timings() (on, off, period time.Duration) {
	if ns := float64(time.Second) / p.frequency; ns >= float64(MaxPWMPeriod) {
		period = MaxPWMPeriod
	} else {
		period = time.Duration(ns)
	}
	if period <= 0 {
		period = time.Nanosecond
	}
	on = time.Duration(float64(period) * float64(p.duty) / float64(p.resolution))
	off = period - on
	return on, off, period
}

// Running returns true while the loop is active.
func (p *SoftPWM) Running() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

// Err returns the error that terminated the last loop, if any.
func (p *SoftPWM) Err() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastErr
}

// Start the PWM loop.
// Starting a running PWM is a no-op.
func (p *SoftPWM) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return errors.Wrapf(StateError, "pwm %s is closed", p.pin.Line())
	}
	if p.running {
		return nil
	}
	p.running = true
	p.lastErr = nil
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)

	line := p.pin.Line()
	pwmStartsTotal.WithLabelValues(line).Inc()
	pwmRunningGauge.WithLabelValues(line).Set(1)
	p.log.Debug().
		Float64("frequency", p.frequency).
		Int("duty", p.duty).
		Int("resolution", int(p.resolution)).
		Msg("Started soft PWM")
	return nil
}

// Stop the PWM loop, wait for it to terminate and drive the pin low.
// Returns the error that terminated the loop, if any. In that case
// the pin is left at its last written level.
// Stopping a stopped PWM is a no-op.
func (p *SoftPWM) Stop() error {
	p.mutex.Lock()
	if !p.running {
		err := p.lastErr
		p.mutex.Unlock()
		return err
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mutex.Unlock()

	<-done
	pwmRunningGauge.WithLabelValues(p.pin.Line()).Set(0)
	if err := p.Err(); err != nil {
		return err
	}
	if err := p.pin.Write(0); err != nil {
		return maskAny(err)
	}
	p.log.Debug().Msg("Stopped soft PWM")
	return nil
}

// Close stops the PWM and releases its pin.
// Closing a closed PWM is a no-op.
func (p *SoftPWM) Close() error {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil
	}
	p.closed = true
	p.mutex.Unlock()

	stopErr := p.Stop()
	if err := p.pin.Close(); err != nil {
		return maskAny(err)
	}
	return stopErr
}

// run the PWM loop until the stop channel is closed or a write fails.
func (p *SoftPWM) run(stop, done chan struct{}) {
	defer close(done)

	for {
		on, off, _ := p.Timings()
		if on > 0 {
			if err := p.pin.Write(1); err != nil {
				p.fail(err)
				return
			}
			if !sleep(stop, on) {
				return
			}
		}
		if off > 0 {
			if err := p.pin.Write(0); err != nil {
				p.fail(err)
				return
			}
			if !sleep(stop, off) {
				return
			}
		}
	}
}

// fail records a loop error and marks the PWM as stopped.
// The pin is left at its last written level.
func (p *SoftPWM) fail(err error) {
	line := p.pin.Line()
	p.mutex.Lock()
	p.lastErr = err
	p.running = false
	p.mutex.Unlock()
	pwmLoopErrorsTotal.WithLabelValues(line).Inc()
	pwmRunningGauge.WithLabelValues(line).Set(0)
	p.log.Error().Err(err).Msg("Soft PWM loop failed")
}

// sleep for given duration.
// Returns false when the stop channel was closed before the duration elapsed.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}

func (p *SoftPWM) String() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return fmt.Sprintf("SoftPWM(%s, %s, duty=%d/%d, running=%t)",
		p.pin.Line(), humanize.SI(p.frequency, "Hz"), p.duty, p.resolution, p.running)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
