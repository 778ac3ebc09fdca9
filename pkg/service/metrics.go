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
	"github.com/binkynet/gpiodzero/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Number of configured components per kind
	componentsGauge = metrics.MustRegisterGaugeVec(subSystem,
		"components",
		"Number of configured components",
		"kind")
	// Total number of components that failed to open
	componentErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"component_errors_total",
		"Total number of components that could not be created",
		"kind")
	// Total number of configuration (re)loads
	configLoadsTotal = metrics.MustRegisterCounterVec(subSystem,
		"config_loads_total",
		"Total number of configuration loads",
		"result")
	// Total number of commands per component
	commandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Total number of commands per component",
		"kind", "name")
	// Total number of published events per kind
	eventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"events_total",
		"Total number of published events",
		"kind", "type")
)
