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

package mqtt

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/gpiodzero/pkg/service"
)

// ButtonTopic returns the topic on which events of the button
// with given name are published.
func ButtonTopic(prefix, name string) string {
	return normalizePrefix(prefix) + "/" + string(service.KindButton) + "/" + name
}

// StateTopic returns the (retained) topic on which the state of a
// component is published.
func StateTopic(prefix string, kind service.Kind, name string) string {
	return normalizePrefix(prefix) + "/" + string(kind) + "/" + name + "/state"
}

// CommandTopic returns the topic on which commands for a component are received.
func CommandTopic(prefix string, kind service.Kind, name string) string {
	return normalizePrefix(prefix) + "/" + string(kind) + "/" + name + "/set"
}

// LogTopic returns the topic on which log lines are published.
func LogTopic(prefix string) string {
	return normalizePrefix(prefix) + "/logs"
}

// commandFilter returns the topic filter matching all command topics.
func commandFilter(prefix string) string {
	return normalizePrefix(prefix) + "/+/+/set"
}

func normalizePrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/")
}

// parseCommandTopic splits a command topic into the kind & name of the
// component. Returns false if the topic is not a valid command topic.
func parseCommandTopic(prefix, topic string) (service.Kind, string, bool) {
	rest := strings.TrimPrefix(topic, normalizePrefix(prefix)+"/")
	if rest == topic {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[1] == "" {
		return "", "", false
	}
	kind := service.Kind(parts[0])
	switch kind {
	case service.KindLED, service.KindRGBLED, service.KindPWM:
		return kind, parts[1], true
	default:
		return "", "", false
	}
}

// buttonMessage is published for every button event.
type buttonMessage struct {
	Event string `json:"event"`
	Time  string `json:"time"`
}

// Parse a string into a bool
func parseBool(str string) (bool, error) {
	switch strings.ToLower(str) {
	case "1", "t", "true", "on", "yes":
		return true, nil
	case "0", "f", "false", "off", "no":
		return false, nil
	}
	return false, errors.Wrapf(service.InvalidCommandError, "invalid bool value '%s'", str)
}

// isJSON returns true if the payload looks like a JSON object.
func isJSON(payload []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{"))
}

func decodeJSON(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrapf(service.InvalidCommandError, "invalid payload: %v", err)
	}
	return nil
}

// parseLEDCommand parses a JSON command, "toggle" or a bool ("ON"/"OFF").
func parseLEDCommand(payload []byte) (service.LEDCommand, error) {
	var cmd service.LEDCommand
	if isJSON(payload) {
		return cmd, decodeJSON(payload, &cmd)
	}
	str := strings.TrimSpace(string(payload))
	if strings.EqualFold(str, "toggle") {
		cmd.Toggle = true
		return cmd, nil
	}
	on, err := parseBool(str)
	if err != nil {
		return cmd, err
	}
	cmd.On = &on
	return cmd, nil
}

// parseRGBLEDCommand parses a JSON command or "OFF".
func parseRGBLEDCommand(payload []byte) (service.RGBLEDCommand, error) {
	var cmd service.RGBLEDCommand
	if isJSON(payload) {
		return cmd, decodeJSON(payload, &cmd)
	}
	on, err := parseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return cmd, err
	}
	if on {
		white := 1.0
		cmd.Red, cmd.Green, cmd.Blue = &white, &white, &white
	} else {
		cmd.Off = true
	}
	return cmd, nil
}

// parsePWMCommand parses a JSON command or a bool that starts/stops the PWM.
func parsePWMCommand(payload []byte) (service.PWMCommand, error) {
	var cmd service.PWMCommand
	if isJSON(payload) {
		return cmd, decodeJSON(payload, &cmd)
	}
	running, err := parseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return cmd, err
	}
	cmd.Running = &running
	return cmd, nil
}
