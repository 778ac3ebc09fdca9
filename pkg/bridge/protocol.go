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

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// Protocol identifies the variant of the GPIO line request protocol
// supported by the running kernel.
type Protocol int

const (
	// ProtocolUnknown means the protocol has not been detected (yet).
	ProtocolUnknown Protocol = iota
	// ProtocolDirectRequest is the legacy request-per-line protocol (uAPI v1).
	ProtocolDirectRequest
	// ProtocolBulkConfig is the line request protocol with a config
	// block covering all requested lines (uAPI v2).
	ProtocolBulkConfig
)

func (p Protocol) String() string {
	switch p {
	case ProtocolDirectRequest:
		return "direct-request"
	case ProtocolBulkConfig:
		return "bulk-config"
	default:
		return "unknown"
	}
}

// ABIVersion returns the GPIO uAPI version that implements the protocol.
func (p Protocol) ABIVersion() int {
	switch p {
	case ProtocolDirectRequest:
		return 1
	case ProtocolBulkConfig:
		return 2
	default:
		return 0
	}
}

var (
	protocolMutex    sync.Mutex
	detectedProtocol = ProtocolUnknown

	// probeABI checks whether the given chip can be used with given uAPI version.
	probeABI = func(chip string, abiVersion int) error {
		c, err := gpiocdev.NewChip(chip, gpiocdev.WithABIVersion(abiVersion))
		if err != nil {
			return err
		}
		return c.Close()
	}
)

// DetectProtocol returns the line request protocol supported by the kernel.
// The probe runs once per process; the first successful result is cached
// and returned for all chips from then on.
// A failed probe (e.g. because the chip does not exist) is not cached.
func DetectProtocol(chip string) (Protocol, error) {
	protocolMutex.Lock()
	defer protocolMutex.Unlock()

	if detectedProtocol != ProtocolUnknown {
		return detectedProtocol, nil
	}
	var lastErr error
	for _, p := range []Protocol{ProtocolBulkConfig, ProtocolDirectRequest} {
		if err := probeABI(chip, p.ABIVersion()); err != nil {
			lastErr = err
			continue
		}
		detectedProtocol = p
		protocolProbesTotal.WithLabelValues(p.String()).Inc()
		return p, nil
	}
	protocolProbesTotal.WithLabelValues(ProtocolUnknown.String()).Inc()
	return ProtocolUnknown, errors.Wrapf(lastErr, "no supported GPIO protocol on chip '%s'", chip)
}
