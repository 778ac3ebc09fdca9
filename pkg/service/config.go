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
	"fmt"
	"os"
	"strings"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/components"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

const (
	DefaultHTTPPort    = 7130
	DefaultSSHPort     = 7131
	DefaultTopicPrefix = "gpiodzero"
	DefaultPWMFreq     = 1000
)

// Duration is a time.Duration that is configured as a string ("30ms").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return errors.Wrapf(InvalidConfigError, "invalid duration '%s'", string(text))
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the duration as time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config of the daemon.
type Config struct {
	// Bridge type (cdev|sysfs|virtual), empty means auto detect
	Bridge   string `toml:"bridge"`
	Chip     string `toml:"chip"`
	Consumer string `toml:"consumer"`

	Server ServerConfig `toml:"server"`
	MQTT   MQTTConfig   `toml:"mqtt"`

	LEDs    []LEDConfig    `toml:"led"`
	RGBLEDs []RGBLEDConfig `toml:"rgb_led"`
	PWMs    []PWMConfig    `toml:"pwm"`
	Buttons []ButtonConfig `toml:"button"`
}

// ServerConfig configures the HTTP & SSH servers.
type ServerConfig struct {
	Host     string `toml:"host"`
	HTTPPort int    `toml:"http_port"`
	// SSH port, 0 disables the SSH server
	SSHPort     int    `toml:"ssh_port"`
	HostKeyPath string `toml:"host_key_path"`
}

// MQTTConfig configures the MQTT client.
type MQTTConfig struct {
	// Broker address (tcp://host:1883), empty disables MQTT
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	// If set, log lines are published to <topic_prefix>/logs
	Log bool `toml:"log"`
}

// Enabled returns true when a broker is configured.
func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// LEDConfig configures a single LED.
type LEDConfig struct {
	Name string `toml:"name"`
	Chip string `toml:"chip"`
	Pin  int    `toml:"pin"`
}

// RGBLEDConfig configures an RGB LED.
type RGBLEDConfig struct {
	Name      string  `toml:"name"`
	Chip      string  `toml:"chip"`
	Red       int     `toml:"red"`
	Green     int     `toml:"green"`
	Blue      int     `toml:"blue"`
	Frequency float64 `toml:"frequency"`
}

// PWMConfig configures a soft PWM.
type PWMConfig struct {
	Name      string  `toml:"name"`
	Chip      string  `toml:"chip"`
	Pin       int     `toml:"pin"`
	Frequency float64 `toml:"frequency"`
	// Resolution in bits (8|10|12|16)
	Resolution int  `toml:"resolution"`
	Duty       int  `toml:"duty"`
	Start      bool `toml:"start"`
}

// ButtonConfig configures a push button.
type ButtonConfig struct {
	Name              string   `toml:"name"`
	Chip              string   `toml:"chip"`
	Pin               int      `toml:"pin"`
	Pull              string   `toml:"pull"`
	Debounce          Duration `toml:"debounce"`
	PollInterval      Duration `toml:"poll_interval"`
	ClickDetection    bool     `toml:"click_detection"`
	DoubleClickWindow Duration `toml:"double_click_window"`
	HoldTime          Duration `toml:"hold_time"`
}

// DefaultConfig returns a configuration without components.
func DefaultConfig() Config {
	return Config{
		Chip:     bridge.DefaultChip,
		Consumer: bridge.DefaultConsumer,
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: DefaultHTTPPort,
			SSHPort:  DefaultSSHPort,
		},
		MQTT: MQTTConfig{
			ClientID:    "gpiodzero",
			TopicPrefix: DefaultTopicPrefix,
		},
	}
}

// LoadConfig reads and validates the configuration file at given path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config '%s'", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config '%s'", path)
	}
	return cfg, nil
}

// ParseConfig parses and validates a TOML configuration.
// Settings that are not specified keep their default value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(InvalidConfigError, "parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, maskAny(err)
	}
	return cfg, nil
}

// chipOrDefault returns the given chip, or the global chip if empty.
func (c Config) chipOrDefault(chip string) string {
	if chip != "" {
		return chip
	}
	if c.Chip != "" {
		return c.Chip
	}
	return bridge.DefaultChip
}

// Validate the configuration.
func (c Config) Validate() error {
	var ae aerr.AggregateError
	invalid := func(format string, args ...interface{}) {
		ae.Add(errors.Errorf(format, args...))
	}
	switch strings.ToLower(c.Bridge) {
	case "", bridge.TypeCdev, bridge.TypeSysfs, bridge.TypeVirtual:
	default:
		invalid("unknown bridge '%s'", c.Bridge)
	}
	if c.Server.HTTPPort < 0 || c.Server.SSHPort < 0 {
		invalid("ports must not be negative")
	}

	names := make(map[string]string)
	lines := make(map[string]string)
	checkName := func(kind, name string) {
		if name == "" {
			invalid("%s without a name", kind)
			return
		}
		key := kind + "/" + name
		if _, found := names[key]; found {
			invalid("duplicate %s '%s'", kind, name)
		}
		names[key] = name
	}
	checkPin := func(kind, name, chip string, pin int) {
		if pin < 0 {
			invalid("%s '%s' has negative pin %d", kind, name, pin)
			return
		}
		line := fmt.Sprintf("%s:%d", c.chipOrDefault(chip), pin)
		if other, found := lines[line]; found {
			invalid("%s '%s' uses line %s, already used by %s", kind, name, line, other)
		}
		lines[line] = kind + " '" + name + "'"
	}

	for _, x := range c.LEDs {
		checkName("led", x.Name)
		checkPin("led", x.Name, x.Chip, x.Pin)
	}
	for _, x := range c.RGBLEDs {
		checkName("rgb_led", x.Name)
		checkPin("rgb_led", x.Name, x.Chip, x.Red)
		checkPin("rgb_led", x.Name, x.Chip, x.Green)
		checkPin("rgb_led", x.Name, x.Chip, x.Blue)
		if x.Frequency < 0 {
			invalid("rgb_led '%s' has negative frequency", x.Name)
		}
	}
	for _, x := range c.PWMs {
		checkName("pwm", x.Name)
		checkPin("pwm", x.Name, x.Chip, x.Pin)
		if x.Frequency < 0 {
			invalid("pwm '%s' has negative frequency", x.Name)
		}
		if x.Resolution != 0 {
			if _, err := devices.ResolutionFromBits(x.Resolution); err != nil {
				invalid("pwm '%s': %v", x.Name, err)
			}
		}
	}
	for _, x := range c.Buttons {
		checkName("button", x.Name)
		checkPin("button", x.Name, x.Chip, x.Pin)
		if _, err := devices.ParsePull(x.Pull); err != nil {
			invalid("button '%s': %v", x.Name, err)
		}
		if x.Debounce < 0 || x.PollInterval < 0 || x.DoubleClickWindow < 0 || x.HoldTime < 0 {
			invalid("button '%s' has negative durations", x.Name)
		}
	}
	if err := ae.AsError(); err != nil {
		return errors.Wrap(InvalidConfigError, err.Error())
	}
	return nil
}

// frequency returns the configured frequency or the default.
func (x PWMConfig) frequency() float64 {
	if x.Frequency == 0 {
		return DefaultPWMFreq
	}
	return x.Frequency
}

// resolution returns the configured resolution or the default (8 bits).
func (x PWMConfig) resolution() devices.Resolution {
	if r, err := devices.ResolutionFromBits(x.Resolution); err == nil {
		return r
	}
	return devices.Resolution8
}

// componentConfig converts to the configuration of a button component.
func (x ButtonConfig) componentConfig(chip, consumer string) components.ButtonConfig {
	pull, _ := devices.ParsePull(x.Pull)
	return components.ButtonConfig{
		Chip:              chip,
		Offset:            x.Pin,
		Pull:              pull,
		Consumer:          consumer,
		Debounce:          x.Debounce.D(),
		PollInterval:      x.PollInterval.D(),
		ClickDetection:    x.ClickDetection,
		DoubleClickWindow: x.DoubleClickWindow.D(),
		HoldTime:          x.HoldTime.D(),
	}
}
