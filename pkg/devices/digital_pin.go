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
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/binkynet/gpiodzero/pkg/bridge"
)

// Direction of a pin
type Direction int

const (
	// Input pins are read
	Input Direction = iota
	// Output pins are written
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Pull configures the bias of an input pin.
type Pull int

const (
	// PullNone leaves the line floating
	PullNone Pull = iota
	// PullUp pulls the line high, a button pulls it low when pressed
	PullUp
	// PullDown pulls the line low, a button pulls it high when pressed
	PullDown
)

func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// ParsePull parses "up", "down" or "none" (empty means none).
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "pull-up", "pullup":
		return PullUp, nil
	case "down", "pull-down", "pulldown":
		return PullDown, nil
	case "", "none":
		return PullNone, nil
	default:
		return PullNone, errors.Wrapf(InvalidArgumentError, "unknown pull '%s' (up|down|none)", s)
	}
}

// bias converts the pull into a bias of the bridge.
func (p Pull) bias() bridge.Bias {
	switch p {
	case PullUp:
		return bridge.BiasPullUp
	case PullDown:
		return bridge.BiasPullDown
	default:
		return bridge.BiasNone
	}
}

type pinOptions struct {
	pull     Pull
	initial  int
	consumer string
}

// PinOption customizes the opening of a pin.
type PinOption func(*pinOptions)

// WithPull sets the pull of an input pin.
func WithPull(pull Pull) PinOption {
	return func(o *pinOptions) { o.pull = pull }
}

// WithInitialValue sets the level an output pin is driven to when opened.
func WithInitialValue(value int) PinOption {
	return func(o *pinOptions) { o.initial = normalize(value) }
}

// WithConsumer sets the consumer label of the requested line.
func WithConsumer(consumer string) PinOption {
	return func(o *pinOptions) { o.consumer = consumer }
}

// DigitalPin is a single GPIO line requested as input or output.
type DigitalPin struct {
	mutex     sync.Mutex
	chip      string
	offset    int
	direction Direction
	pull      Pull
	lastValue int
	input     bridge.InputLine
	output    bridge.OutputLine
	closed    bool
}

// OpenPin requests the line at given offset of given chip
// in given direction.
func OpenPin(api bridge.API, chip string, offset int, dir Direction, opts ...PinOption) (*DigitalPin, error) {
	o := pinOptions{consumer: bridge.DefaultConsumer}
	for _, opt := range opts {
		opt(&o)
	}
	if chip == "" {
		chip = bridge.DefaultChip
	}
	p := &DigitalPin{
		chip:      chip,
		offset:    offset,
		direction: dir,
	}
	switch dir {
	case Input:
		line, err := api.Input(chip, offset, o.pull.bias(), o.consumer)
		if err != nil {
			return nil, maskAny(err)
		}
		p.input = line
		p.pull = o.pull
	case Output:
		line, err := api.Output(chip, offset, o.initial, o.consumer)
		if err != nil {
			return nil, maskAny(err)
		}
		p.output = line
		p.lastValue = o.initial
	default:
		return nil, errors.Wrapf(InvalidArgumentError, "unknown direction %d", dir)
	}
	openPinsGauge.WithLabelValues(dir.String()).Inc()
	return p, nil
}

// Chip returns the name of the chip the pin belongs to.
func (p *DigitalPin) Chip() string { return p.chip }

// Offset returns the offset of the line on its chip.
func (p *DigitalPin) Offset() int { return p.offset }

// Direction of the pin, fixed when opened.
func (p *DigitalPin) Direction() Direction { return p.direction }

// Pull of the pin (always PullNone for outputs).
func (p *DigitalPin) Pull() Pull { return p.pull }

// Line returns "chip:offset".
func (p *DigitalPin) Line() string {
	return fmt.Sprintf("%s:%d", p.chip, p.offset)
}

// LastValue returns the value of the most recent successful write.
func (p *DigitalPin) LastValue() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastValue
}

// Read the current level of an input pin.
func (p *DigitalPin) Read() (int, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return 0, errors.Wrapf(StateError, "pin %s is closed", p.Line())
	}
	if p.direction != Input {
		return 0, errors.Wrapf(StateError, "cannot read output pin %s", p.Line())
	}
	v, err := p.input.Read()
	if err != nil {
		pinReadErrorsTotal.WithLabelValues(p.Line()).Inc()
		return 0, maskAny(err)
	}
	return v, nil
}

// Write drives an output pin to given value.
// Any non-zero value is written as 1.
func (p *DigitalPin) Write(value int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return errors.Wrapf(StateError, "pin %s is closed", p.Line())
	}
	if p.direction != Output {
		return errors.Wrapf(StateError, "cannot write input pin %s", p.Line())
	}
	value = normalize(value)
	if err := p.output.Write(value); err != nil {
		pinWriteErrorsTotal.WithLabelValues(p.Line()).Inc()
		return maskAny(err)
	}
	p.lastValue = value
	return nil
}

// Closed returns true once the pin has been closed.
func (p *DigitalPin) Closed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closed
}

// Close releases the line.
// Closing a closed pin is a no-op.
func (p *DigitalPin) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	openPinsGauge.WithLabelValues(p.direction.String()).Dec()
	var err error
	if p.input != nil {
		err = p.input.Close()
	} else if p.output != nil {
		err = p.output.Close()
	}
	return maskAny(err)
}

func (p *DigitalPin) String() string {
	if p.direction == Output {
		return fmt.Sprintf("DigitalPin(%s, output, value=%d)", p.Line(), p.LastValue())
	}
	return fmt.Sprintf("DigitalPin(%s, input, pull=%s)", p.Line(), p.pull)
}

// normalize maps any non-zero value onto 1.
func normalize(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}
