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
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// API of the bridge, the layer that claims GPIO lines on a chip
// and provides raw level access to them.
type API interface {
	// Name of the bridge implementation (cdev|sysfs|virtual)
	Name() string
	// Input requests the line at given offset on given chip as an input
	// with given bias.
	Input(chip string, offset int, bias Bias, consumer string) (InputLine, error)
	// Output requests the line at given offset on given chip as an output
	// driven to given initial level (0|1).
	Output(chip string, offset int, initial int, consumer string) (OutputLine, error)
	// Close releases all resources held by the bridge.
	Close() error
}

// InputLine is the interface satisfied by lines requested as input.
type InputLine interface {
	// Read the current level (0|1) of the line.
	Read() (int, error)
	// Close releases the line. Closing a closed line is a no-op.
	Close() error
}

// OutputLine is the interface satisfied by lines requested as output.
type OutputLine interface {
	// Write drives the line to given level (0|1).
	Write(int) error
	// Close releases the line. Closing a closed line is a no-op.
	Close() error
}

// Bias of an input line.
type Bias int

const (
	// BiasNone leaves the line floating (bias disabled).
	BiasNone Bias = iota
	// BiasPullUp pulls an undriven line high.
	BiasPullUp
	// BiasPullDown pulls an undriven line low.
	BiasPullDown
)

func (b Bias) String() string {
	switch b {
	case BiasPullUp:
		return "pull-up"
	case BiasPullDown:
		return "pull-down"
	default:
		return "none"
	}
}

const (
	// DefaultChip is the chip used when none is configured.
	DefaultChip = "gpiochip0"
	// DefaultConsumer is the consumer label put on requested lines.
	DefaultConsumer = "gpiodzero"
)

// Bridge type names
const (
	TypeCdev    = "cdev"
	TypeSysfs   = "sysfs"
	TypeVirtual = "virtual"
)

// New creates a bridge of given type.
func New(bridgeType string, log zerolog.Logger) (API, error) {
	switch strings.ToLower(bridgeType) {
	case TypeCdev:
		return NewCdevBridge(log), nil
	case TypeSysfs:
		return NewSysfsBridge(log), nil
	case TypeVirtual:
		return NewVirtualBridge(), nil
	default:
		return nil, errors.Wrapf(UnknownBridgeTypeError, "bridge type '%s' (cdev|sysfs|virtual)", bridgeType)
	}
}

// normalizeLevel maps any non-zero value onto 1.
func normalizeLevel(v int) int {
	if v != 0 {
		return 1
	}
	return 0
}

// lineKey identifies a single line on a chip.
type lineKey struct {
	chip   string
	offset int
}

func (k lineKey) String() string {
	return fmt.Sprintf("%s:%d", k.chip, k.offset)
}
