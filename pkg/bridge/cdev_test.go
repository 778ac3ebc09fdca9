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
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiosim"
)

// newSimpleton creates a simulated chip, skipping the test when
// the gpio-sim module is not available.
func newSimpleton(t *testing.T, lines int) *gpiosim.Simpleton {
	s, err := gpiosim.NewSimpleton(lines)
	if err != nil {
		t.Skipf("gpio-sim not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCdevOutput(t *testing.T) {
	s := newSimpleton(t, 8)
	resetProtocol(t, nil)
	b := NewCdevBridge(zerolog.Nop())
	defer b.Close()

	out, err := b.Output(s.DevPath(), 3, 1, "cdev-test")
	require.NoError(t, err)
	checkLevel(t, s, 3, 1)
	require.NoError(t, out.Write(0))
	checkLevel(t, s, 3, 0)
	require.NoError(t, out.Write(5))
	checkLevel(t, s, 3, 1)

	// Kernel refuses a second claim
	_, err = b.Input(s.DevPath(), 3, BiasNone, "cdev-test")
	require.Error(t, err)
	assert.True(t, IsIOError(err))

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	err = out.Write(1)
	assert.Equal(t, LineClosedError, errors.Cause(err))
}

func TestCdevInput(t *testing.T) {
	s := newSimpleton(t, 8)
	resetProtocol(t, nil)
	b := NewCdevBridge(zerolog.Nop())
	defer b.Close()

	in, err := b.Input(s.DevPath(), 5, BiasNone, "cdev-test")
	require.NoError(t, err)
	defer in.Close()

	require.NoError(t, s.SetPull(5, 1))
	v, err := in.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, s.SetPull(5, 0))
	v, err = in.Read()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	p, err := DetectProtocol(s.DevPath())
	require.NoError(t, err)
	assert.NotEqual(t, ProtocolUnknown, p)
}

func TestCdevUnknownChip(t *testing.T) {
	resetProtocol(t, nil)
	b := NewCdevBridge(zerolog.Nop())
	defer b.Close()

	_, err := b.Input("/dev/gpiochip-does-not-exist", 0, BiasNone, "cdev-test")
	require.Error(t, err)
	assert.True(t, IsIOError(err))
}

func TestGetChipInfo(t *testing.T) {
	s := newSimpleton(t, 6)
	resetProtocol(t, nil)
	b := NewCdevBridge(zerolog.Nop())
	defer b.Close()

	out, err := b.Output(s.DevPath(), 2, 0, "cdev-test")
	require.NoError(t, err)
	defer out.Close()

	info, err := GetChipInfo(s.DevPath())
	require.NoError(t, err)
	assert.Equal(t, s.ChipName(), info.Name)
	assert.Equal(t, 6, info.Lines)
	assert.Equal(t, 1, info.Used)
}

func checkLevel(t *testing.T, s *gpiosim.Simpleton, offset, expected int) {
	t.Helper()
	v, err := s.Level(offset)
	require.NoError(t, err)
	assert.Equal(t, expected, v, "level of line %d", offset)
}
