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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/bridge"
)

func TestOpenOutputPin(t *testing.T) {
	api := bridge.NewVirtualBridge()
	p, err := OpenPin(api, "", 17, Output, WithInitialValue(1), WithConsumer("pin-test"))
	require.NoError(t, err)
	line := api.Line(bridge.DefaultChip, 17)

	assert.Equal(t, bridge.DefaultChip, p.Chip())
	assert.Equal(t, 17, p.Offset())
	assert.Equal(t, Output, p.Direction())
	assert.Equal(t, 1, p.LastValue())
	assert.Equal(t, 1, line.Level())
	assert.Equal(t, "pin-test", line.Consumer())

	require.NoError(t, p.Write(0))
	assert.Equal(t, 0, p.LastValue())
	require.NoError(t, p.Write(42))
	assert.Equal(t, 1, p.LastValue())
	assert.Equal(t, 1, line.Level())

	_, err = p.Read()
	assert.True(t, IsStateError(err))
	assert.Equal(t, "DigitalPin(gpiochip0:17, output, value=1)", p.String())
}

func TestOpenInputPin(t *testing.T) {
	api := bridge.NewVirtualBridge()
	p, err := OpenPin(api, "gpiochip1", 4, Input, WithPull(PullUp))
	require.NoError(t, err)
	defer p.Close()

	v, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	api.Line("gpiochip1", 4).SetLevel(0)
	v, err = p.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	err = p.Write(1)
	assert.True(t, IsStateError(err))
	assert.Equal(t, PullUp, p.Pull())
}

func TestPinWriteFailureKeepsLastValue(t *testing.T) {
	api := bridge.NewVirtualBridge()
	p, err := OpenPin(api, "gpiochip0", 2, Output)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Write(1))
	api.Line("gpiochip0", 2).FailWrites(errors.New("input/output error"))
	err = p.Write(0)
	require.Error(t, err)
	assert.True(t, IsIOError(err))
	assert.False(t, IsStateError(err))
	assert.Equal(t, 1, p.LastValue())
}

func TestPinClose(t *testing.T) {
	api := bridge.NewVirtualBridge()
	p, err := OpenPin(api, "gpiochip0", 3, Output)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
	assert.False(t, api.Line("gpiochip0", 3).Claimed())
	assert.True(t, IsStateError(p.Write(1)))
	_, err = p.Read()
	assert.True(t, IsStateError(err))

	// The line can be claimed again
	p2, err := OpenPin(api, "gpiochip0", 3, Input)
	require.NoError(t, err)
	require.NoError(t, p2.Close())
}

func TestOpenPinBusy(t *testing.T) {
	api := bridge.NewVirtualBridge()
	p, err := OpenPin(api, "gpiochip0", 5, Output)
	require.NoError(t, err)
	defer p.Close()

	_, err = OpenPin(api, "gpiochip0", 5, Input)
	require.Error(t, err)
	assert.True(t, IsIOError(err))
}

func TestParsePull(t *testing.T) {
	tests := []struct {
		input    string
		expected Pull
	}{
		{"up", PullUp},
		{"UP", PullUp},
		{"down", PullDown},
		{"none", PullNone},
		{"", PullNone},
	}
	for _, test := range tests {
		p, err := ParsePull(test.input)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.expected, p, test.input)
	}
	_, err := ParsePull("sideways")
	assert.True(t, IsInvalidArgument(err))
}
