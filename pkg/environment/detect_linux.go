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

package environment

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// AutoDetectBridgeType detects the bridge type to use based on the
// running kernel and the available GPIO interfaces.
func AutoDetectBridgeType(log zerolog.Logger) string {
	var name unix.Utsname
	release := ""
	if err := unix.Uname(&name); err != nil {
		log.Warn().Err(err).Msg("Failed to get kernel release")
	} else {
		release = strings.TrimSpace(strings.TrimRight(string(name.Release[:]), "\x00"))
	}
	chips, _ := filepath.Glob("/dev/gpiochip*")
	sysfs, _ := filepath.Glob("/sys/class/gpio/export")
	result := selectBridgeType(release, len(chips) > 0, len(sysfs) > 0)
	log.Debug().
		Str("release", release).
		Int("chips", len(chips)).
		Str("bridge", result).
		Msg("Detected bridge type")
	return result
}
