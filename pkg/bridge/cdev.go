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

package bridge

import (
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

type cdevBridge struct {
	log   zerolog.Logger
	mutex sync.Mutex
	chips map[string]*gpiocdev.Chip
}

// NewCdevBridge implements the bridge on top of the GPIO character device.
// The line request protocol is detected once per process, see DetectProtocol.
func NewCdevBridge(log zerolog.Logger) API {
	return &cdevBridge{
		log:   log.With().Str("bridge", TypeCdev).Logger(),
		chips: make(map[string]*gpiocdev.Chip),
	}
}

// Name of the bridge implementation
func (b *cdevBridge) Name() string {
	return TypeCdev
}

// chip returns the opened chip with given name, opening it if needed.
// Requires mutex to be locked.
func (b *cdevBridge) chip(name string) (*gpiocdev.Chip, Protocol, error) {
	protocol, err := DetectProtocol(name)
	if err != nil {
		return nil, protocol, err
	}
	if c, found := b.chips[name]; found {
		return c, protocol, nil
	}
	c, err := gpiocdev.NewChip(name, gpiocdev.WithABIVersion(protocol.ABIVersion()))
	if err != nil {
		return nil, protocol, err
	}
	b.log.Debug().
		Str("chip", name).
		Str("label", c.Label).
		Int("lines", c.Lines()).
		Str("protocol", protocol.String()).
		Msg("Opened chip")
	b.chips[name] = c
	return c, protocol, nil
}

// Input requests the line at given offset on given chip as an input.
func (b *cdevBridge) Input(chip string, offset int, bias Bias, consumer string) (InputLine, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeCdev, "input").Inc()
	c, protocol, err := b.chip(chip)
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithConsumer(consumer)}
	switch bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	default:
		// Direct request kernels may not know about bias flags at all.
		if protocol == ProtocolBulkConfig {
			opts = append(opts, gpiocdev.WithBiasDisabled)
		}
	}
	l, err := c.RequestLine(offset, opts...)
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	return &cdevLine{key: key, line: l}, nil
}

// Output requests the line at given offset on given chip as an output.
func (b *cdevBridge) Output(chip string, offset int, initial int, consumer string) (OutputLine, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeCdev, "output").Inc()
	c, _, err := b.chip(chip)
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	l, err := c.RequestLine(offset,
		gpiocdev.AsOutput(normalizeLevel(initial)),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	return &cdevLine{key: key, line: l, output: true}, nil
}

// Close all opened chips.
func (b *cdevBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var ae aerr.AggregateError
	for name, c := range b.chips {
		if err := c.Close(); err != nil {
			ae.Add(err)
		}
		delete(b.chips, name)
	}
	return ae.AsError()
}

type cdevLine struct {
	key    lineKey
	output bool
	mutex  sync.Mutex
	line   *gpiocdev.Line
}

// Read the current level of the line.
func (l *cdevLine) Read() (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.line == nil {
		return 0, newIOError("read", l.key, LineClosedError)
	}
	v, err := l.line.Value()
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "read").Inc()
		return 0, newIOError("read", l.key, err)
	}
	return v, nil
}

// Write drives the line to given level.
func (l *cdevLine) Write(value int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.line == nil {
		return newIOError("write", l.key, LineClosedError)
	}
	if err := l.line.SetValue(normalizeLevel(value)); err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "write").Inc()
		return newIOError("write", l.key, err)
	}
	return nil
}

// Close releases the line.
// Outputs are reverted to input before they are released.
func (l *cdevLine) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	line := l.line
	if line == nil {
		return nil
	}
	l.line = nil
	if l.output {
		line.Reconfigure(gpiocdev.AsInput)
	}
	if err := line.Close(); err != nil {
		lineErrorsTotal.WithLabelValues(TypeCdev, "release").Inc()
		return newIOError("release", l.key, err)
	}
	return nil
}
