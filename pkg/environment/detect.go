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
	"strconv"
	"strings"

	"github.com/binkynet/gpiodzero/pkg/bridge"
)

const (
	// First kernel version with the GPIO character device
	cdevMajor = 4
	cdevMinor = 8
)

// selectBridgeType selects the bridge type for given kernel release
// and available interfaces.
func selectBridgeType(release string, haveChips, haveSysfs bool) string {
	major, minor, ok := parseKernelVersion(release)
	cdevKernel := ok && (major > cdevMajor || (major == cdevMajor && minor >= cdevMinor))
	switch {
	case haveChips && (cdevKernel || !ok):
		return bridge.TypeCdev
	case haveSysfs:
		return bridge.TypeSysfs
	case haveChips:
		return bridge.TypeCdev
	default:
		return bridge.TypeVirtual
	}
}

// parseKernelVersion parses the major & minor version of a kernel
// release such as "6.1.21-v8+".
func parseKernelVersion(release string) (major, minor int, ok bool) {
	parts := strings.SplitN(release, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	digits := parts[1]
	if i := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = digits[:i]
	}
	minor, err = strconv.Atoi(digits)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
