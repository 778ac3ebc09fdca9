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
	"github.com/binkynet/gpiodzero/pkg/metrics"
)

const (
	subSystem = "mqtt"
)

var (
	// 1 while connected to the broker
	connectedGauge = metrics.MustRegisterGauge(subSystem,
		"connected",
		"1 while connected to the MQTT broker")
	// Total number of messages received
	messagesReceivedTotal = metrics.MustRegisterCounter(subSystem,
		"messages_received_total",
		"Total number of MQTT messages received")
	// Total number of messages published
	messagesPublishedTotal = metrics.MustRegisterCounter(subSystem,
		"messages_published_total",
		"Total number of MQTT messages published")
	// Total number of failed publications
	publishErrorsTotal = metrics.MustRegisterCounter(subSystem,
		"publish_errors_total",
		"Total number of failed MQTT publications")
	// Total number of commands per kind & result
	commandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"commands_total",
		"Total number of MQTT commands per component kind and result",
		"kind", "result")
)
