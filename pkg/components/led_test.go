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
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

func newTestLED(t *testing.T) (*LED, *bridge.VirtualLine) {
	api := bridge.NewVirtualBridge()
	l, err := NewLED(api, "gpiochip0", 22, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, api.Line("gpiochip0", 22)
}

func TestLEDOnOffToggle(t *testing.T) {
	l, line := newTestLED(t)
	assert.False(t, l.IsLit())
	assert.Equal(t, 0, line.Level())

	require.NoError(t, l.On())
	assert.True(t, l.IsLit())
	assert.Equal(t, 1, line.Level())

	require.NoError(t, l.Toggle())
	assert.False(t, l.IsLit())
	assert.Equal(t, 0, line.Level())

	require.NoError(t, l.Toggle())
	assert.True(t, l.IsLit())

	require.NoError(t, l.Off())
	assert.False(t, l.IsLit())
	assert.Equal(t, "LED(gpiochip0:22, lit=false)", l.String())
}

func TestLEDBlinkCount(t *testing.T) {
	l, line := newTestLED(t)
	line.ResetHistory()

	require.NoError(t, l.Blink(10*time.Millisecond, 10*time.Millisecond, 3))
	assert.True(t, l.Blinking())
	assert.Eventually(t, func() bool { return !l.Blinking() }, time.Second, time.Millisecond)

	var values []int
	for _, tr := range line.History() {
		values = append(values, tr.Level)
	}
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0}, values)
	assert.False(t, l.IsLit())
}

func TestLEDBlinkCanceledByOn(t *testing.T) {
	l, line := newTestLED(t)
	require.NoError(t, l.Blink(5*time.Millisecond, 5*time.Millisecond, 0))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Blinking())

	require.NoError(t, l.On())
	assert.False(t, l.Blinking())
	line.ResetHistory()
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, line.History())
	assert.Equal(t, 1, line.Level())
}

func TestLEDBlinkInvalid(t *testing.T) {
	l, _ := newTestLED(t)
	err := l.Blink(0, time.Millisecond, 1)
	assert.True(t, devices.IsInvalidArgument(err))
}

func TestLEDClose(t *testing.T) {
	l, line := newTestLED(t)
	require.NoError(t, l.Blink(5*time.Millisecond, 5*time.Millisecond, 0))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.False(t, line.Claimed())
	assert.Equal(t, 0, line.Level())
	assert.True(t, devices.IsStateError(l.On()))
	assert.True(t, devices.IsStateError(l.Blink(time.Millisecond, time.Millisecond, 1)))
}
