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

	"github.com/ecc1/gpio"
	"github.com/rs/zerolog"
)

type sysfsBridge struct {
	log     zerolog.Logger
	mutex   sync.Mutex
	claimed map[lineKey]struct{}
}

// NewSysfsBridge implements the bridge on the legacy sysfs GPIO interface.
// Sysfs addresses lines by global GPIO number, so the chip name is only used
// for bookkeeping. Bias is not supported.
func NewSysfsBridge(log zerolog.Logger) API {
	return &sysfsBridge{
		log:     log.With().Str("bridge", TypeSysfs).Logger(),
		claimed: make(map[lineKey]struct{}),
	}
}

// Name of the bridge implementation
func (b *sysfsBridge) Name() string {
	return TypeSysfs
}

// claim marks the given line as in use.
func (b *sysfsBridge) claim(key lineKey) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, found := b.claimed[key]; found {
		return newIOError("open", key, LineBusyError)
	}
	b.claimed[key] = struct{}{}
	return nil
}

// release marks the given line as no longer in use.
func (b *sysfsBridge) release(key lineKey) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.claimed, key)
}

// Input initializes a GPIO input pin with the given pin number.
func (b *sysfsBridge) Input(chip string, offset int, bias Bias, consumer string) (InputLine, error) {
	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeSysfs, "input").Inc()
	if offset < 0 {
		return nil, newIOError("open", key, InvalidLineError)
	}
	if bias != BiasNone {
		b.log.Warn().
			Str("line", key.String()).
			Str("bias", bias.String()).
			Msg("Bias is not supported by sysfs; configure it in the device tree")
	}
	if err := b.claim(key); err != nil {
		return nil, err
	}
	pin, err := gpio.Input(offset, false)
	if err != nil {
		b.release(key)
		lineErrorsTotal.WithLabelValues(TypeSysfs, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	return &sysfsInputLine{sysfsLine: sysfsLine{bridge: b, key: key}, pin: pin}, nil
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (b *sysfsBridge) Output(chip string, offset int, initial int, consumer string) (OutputLine, error) {
	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeSysfs, "output").Inc()
	if offset < 0 {
		return nil, newIOError("open", key, InvalidLineError)
	}
	if err := b.claim(key); err != nil {
		return nil, err
	}
	pin, err := gpio.Output(offset, false, initial != 0)
	if err != nil {
		b.release(key)
		lineErrorsTotal.WithLabelValues(TypeSysfs, "open").Inc()
		return nil, newIOError("open", key, err)
	}
	return &sysfsOutputLine{sysfsLine: sysfsLine{bridge: b, key: key}, pin: pin}, nil
}

// Close the bridge.
// Exported lines stay exported in sysfs.
func (b *sysfsBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.claimed = make(map[lineKey]struct{})
	return nil
}

type sysfsLine struct {
	bridge *sysfsBridge
	key    lineKey
	mutex  sync.Mutex
	closed bool
}

// Close releases the claim on the line.
func (l *sysfsLine) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.closed {
		l.closed = true
		l.bridge.release(l.key)
	}
	return nil
}

type sysfsInputLine struct {
	sysfsLine
	pin gpio.InputPin
}

// Read the current level of the line.
func (l *sysfsInputLine) Read() (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return 0, newIOError("read", l.key, LineClosedError)
	}
	v, err := l.pin.Read()
	if err != nil {
		lineErrorsTotal.WithLabelValues(TypeSysfs, "read").Inc()
		return 0, newIOError("read", l.key, err)
	}
	if v {
		return 1, nil
	}
	return 0, nil
}

type sysfsOutputLine struct {
	sysfsLine
	pin gpio.OutputPin
}

// Write drives the line to given level.
func (l *sysfsOutputLine) Write(value int) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closed {
		return newIOError("write", l.key, LineClosedError)
	}
	if err := l.pin.Write(value != 0); err != nil {
		lineErrorsTotal.WithLabelValues(TypeSysfs, "write").Inc()
		return newIOError("write", l.key, err)
	}
	return nil
}
