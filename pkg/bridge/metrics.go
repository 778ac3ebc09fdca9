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
	"github.com/binkynet/gpiodzero/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of line requests
	lineRequestsTotal = metrics.MustRegisterCounterVec(subSystem,
		"line_requests_total",
		"Total number of line requests",
		"bridge", "direction")
	// Total number of failed line operations
	lineErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"line_errors_total",
		"Total number of failed line operations",
		"bridge", "op")
	// Total number of protocol probes per outcome
	protocolProbesTotal = metrics.MustRegisterCounterVec(subSystem,
		"protocol_probes_total",
		"Total number of GPIO protocol probes per detected protocol",
		"protocol")
)
