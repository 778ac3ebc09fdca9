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

package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
bridge = "virtual"
chip = "gpiochip0"

[server]
http_port = 8130
ssh_port = 0

[mqtt]
broker = "tcp://localhost:1883"
topic_prefix = "home/gpio"

[[led]]
name = "status"
pin = 17

[[rgb_led]]
name = "mood"
red = 5
green = 6
blue = 13
frequency = 500.0

[[pwm]]
name = "fan"
chip = "gpiochip1"
pin = 18
frequency = 100.0
resolution = 10
duty = 512
start = true

[[button]]
name = "doorbell"
pin = 27
pull = "up"
debounce = "20ms"
click_detection = true
hold_time = "1s"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "virtual", cfg.Bridge)
	assert.Equal(t, "gpiochip0", cfg.Chip)
	assert.Equal(t, "gpiodzero", cfg.Consumer)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8130, cfg.Server.HTTPPort)
	assert.Equal(t, 0, cfg.Server.SSHPort)
	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "home/gpio", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "gpiodzero", cfg.MQTT.ClientID)

	require.Len(t, cfg.LEDs, 1)
	assert.Equal(t, LEDConfig{Name: "status", Pin: 17}, cfg.LEDs[0])
	require.Len(t, cfg.RGBLEDs, 1)
	assert.Equal(t, 13, cfg.RGBLEDs[0].Blue)
	assert.Equal(t, float64(500), cfg.RGBLEDs[0].Frequency)
	require.Len(t, cfg.PWMs, 1)
	pwm := cfg.PWMs[0]
	assert.Equal(t, "gpiochip1", pwm.Chip)
	assert.Equal(t, 10, pwm.Resolution)
	assert.True(t, pwm.Start)
	require.Len(t, cfg.Buttons, 1)
	btn := cfg.Buttons[0]
	assert.Equal(t, 20*time.Millisecond, btn.Debounce.D())
	assert.Equal(t, time.Second, btn.HoldTime.D())
	assert.Equal(t, time.Duration(0), btn.PollInterval.D())
	assert.True(t, btn.ClickDetection)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.MQTT.Enabled())
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, DefaultSSHPort, cfg.Server.SSHPort)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":         "bridge = ",
		"bridge":         `bridge = "pigpio"`,
		"duration":       "[[button]]\nname = \"a\"\npin = 1\ndebounce = \"soon\"",
		"duplicate name": "[[led]]\nname = \"a\"\npin = 1\n[[led]]\nname = \"a\"\npin = 2",
		"missing name":   "[[led]]\npin = 1",
		"negative pin":   "[[led]]\nname = \"a\"\npin = -1",
		"line reuse":     "[[led]]\nname = \"a\"\npin = 1\n[[pwm]]\nname = \"b\"\npin = 1",
		"rgb line reuse": "[[rgb_led]]\nname = \"a\"\nred = 1\ngreen = 1\nblue = 2",
		"pull":           "[[button]]\nname = \"a\"\npin = 1\npull = \"sideways\"",
		"resolution":     "[[pwm]]\nname = \"a\"\npin = 1\nresolution = 9",
		"frequency":      "[[pwm]]\nname = \"a\"\npin = 1\nfrequency = -5.0",
	}
	for name, data := range tests {
		_, err := ParseConfig([]byte(data))
		require.Error(t, err, name)
		assert.True(t, IsInvalidConfig(err), "%s: %v", name, err)
	}
}

func TestParseConfigSameNameDifferentKinds(t *testing.T) {
	_, err := ParseConfig([]byte("[[led]]\nname = \"a\"\npin = 1\n[[button]]\nname = \"a\"\npin = 2"))
	assert.NoError(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpiodzero.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.LEDs, 1)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.D())
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
	assert.True(t, IsInvalidConfig(d.UnmarshalText([]byte("later"))))
}
