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
	"time"
)

const (
	maxVirtualHistory = 8192
)

// VirtualBridge implements the bridge with in-memory lines.
// It is used for dry runs and tests. Input levels are driven using
// VirtualLine.SetLevel, output levels can be inspected using
// VirtualLine.Level and VirtualLine.History.
type VirtualBridge struct {
	mutex sync.Mutex
	lines map[lineKey]*VirtualLine
}

// NewVirtualBridge implements the bridge for a virtual worker.
func NewVirtualBridge() *VirtualBridge {
	return &VirtualBridge{
		lines: make(map[lineKey]*VirtualLine),
	}
}

// Name of the bridge implementation
func (b *VirtualBridge) Name() string {
	return TypeVirtual
}

// Line returns the simulated line at given offset of given chip.
// The line is created when needed.
func (b *VirtualBridge) Line(chip string, offset int) *VirtualLine {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	key := lineKey{chip, offset}
	l, found := b.lines[key]
	if !found {
		l = &VirtualLine{key: key}
		b.lines[key] = l
	}
	return l
}

// Input requests the line at given offset on given chip as an input.
func (b *VirtualBridge) Input(chip string, offset int, bias Bias, consumer string) (InputLine, error) {
	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeVirtual, "input").Inc()
	if offset < 0 {
		return nil, newIOError("open", key, InvalidLineError)
	}
	l := b.Line(chip, offset)
	if err := l.claim(consumer, false); err != nil {
		lineErrorsTotal.WithLabelValues(TypeVirtual, "open").Inc()
		return nil, err
	}
	l.applyBias(bias)
	return &virtualHandle{line: l}, nil
}

// Output requests the line at given offset on given chip as an output.
func (b *VirtualBridge) Output(chip string, offset int, initial int, consumer string) (OutputLine, error) {
	key := lineKey{chip, offset}
	lineRequestsTotal.WithLabelValues(TypeVirtual, "output").Inc()
	if offset < 0 {
		return nil, newIOError("open", key, InvalidLineError)
	}
	l := b.Line(chip, offset)
	if err := l.claim(consumer, true); err != nil {
		lineErrorsTotal.WithLabelValues(TypeVirtual, "open").Inc()
		return nil, err
	}
	l.mutex.Lock()
	l.setLevel(normalizeLevel(initial))
	l.mutex.Unlock()
	return &virtualHandle{line: l}, nil
}

// Close releases all lines.
func (b *VirtualBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, l := range b.lines {
		l.mutex.Lock()
		l.consumer = ""
		l.claimed = false
		l.mutex.Unlock()
	}
	return nil
}

// Transition records a level written to a virtual output line.
type Transition struct {
	Level int
	At    time.Time
}

// VirtualLine is a simulated line.
type VirtualLine struct {
	key      lineKey
	mutex    sync.Mutex
	claimed  bool
	consumer string
	output   bool
	level    int
	driven   bool
	history  []Transition
	readErr  error
	writeErr error
}

// claim the line for given consumer.
func (l *VirtualLine) claim(consumer string, output bool) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.claimed {
		return newIOError("open", l.key, LineBusyError)
	}
	l.claimed = true
	l.consumer = consumer
	l.output = output
	return nil
}

// applyBias sets the level of an undriven input according to the bias.
func (l *VirtualLine) applyBias(bias Bias) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.driven {
		return
	}
	if bias == BiasPullUp {
		l.level = 1
	} else {
		l.level = 0
	}
}

// setLevel records a new level. Requires mutex to be locked.
func (l *VirtualLine) setLevel(v int) {
	l.level = v
	l.history = append(l.history, Transition{Level: v, At: time.Now()})
	if len(l.history) > maxVirtualHistory {
		l.history = l.history[len(l.history)-maxVirtualHistory:]
	}
}

// SetLevel drives the (input) line externally to given level.
func (l *VirtualLine) SetLevel(v int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.driven = true
	l.level = normalizeLevel(v)
}

// Level returns the current level of the line.
func (l *VirtualLine) Level() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level
}

// Claimed returns true when the line is currently requested.
func (l *VirtualLine) Claimed() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.claimed
}

// Consumer returns the consumer that requested the line.
func (l *VirtualLine) Consumer() string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.consumer
}

// History returns a copy of the levels written to the line,
// including the initial level of an output.
func (l *VirtualLine) History() []Transition {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	result := make([]Transition, len(l.history))
	copy(result, l.history)
	return result
}

// ResetHistory clears the recorded levels.
func (l *VirtualLine) ResetHistory() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.history = nil
}

// FailReads makes all subsequent reads fail with given error.
// Pass nil to restore normal operation.
func (l *VirtualLine) FailReads(err error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.readErr = err
}

// FailWrites makes all subsequent writes fail with given error.
// Pass nil to restore normal operation.
func (l *VirtualLine) FailWrites(err error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.writeErr = err
}

// virtualHandle is a single request of a virtual line.
type virtualHandle struct {
	line   *VirtualLine
	mutex  sync.Mutex
	closed bool
}

// Read the current level of the line.
func (h *virtualHandle) Read() (int, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	l := h.line
	if h.closed {
		return 0, newIOError("read", l.key, LineClosedError)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.readErr != nil {
		lineErrorsTotal.WithLabelValues(TypeVirtual, "read").Inc()
		return 0, newIOError("read", l.key, l.readErr)
	}
	return l.level, nil
}

// Write drives the line to given level.
func (h *virtualHandle) Write(value int) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	l := h.line
	if h.closed {
		return newIOError("write", l.key, LineClosedError)
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.writeErr != nil {
		lineErrorsTotal.WithLabelValues(TypeVirtual, "write").Inc()
		return newIOError("write", l.key, l.writeErr)
	}
	l.setLevel(normalizeLevel(value))
	return nil
}

// Close releases the line.
func (h *virtualHandle) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	l := h.line
	l.mutex.Lock()
	l.claimed = false
	l.consumer = ""
	l.mutex.Unlock()
	return nil
}
