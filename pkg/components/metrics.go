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

package components

import (
	"github.com/binkynet/gpiodzero/pkg/metrics"
)

const (
	subSystem = "components"
)

var (
	// Button metrics
	buttonEventsTotal = metrics.MustRegisterCounterVec(subSystem,
		"button_events_total",
		"Number of button events",
		"line", "event")
	buttonBouncesTotal = metrics.MustRegisterCounterVec(subSystem,
		"button_bounces_total",
		"Number of button transitions discarded by the debouncer",
		"line")
	buttonPressedGauge = metrics.MustRegisterGaugeVec(subSystem,
		"button_pressed",
		"Stable state of button (0=released, 1=pressed)",
		"line")
	buttonReadErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"button_read_errors_total",
		"Number of read errors that terminated a button monitor",
		"line")

	// LED metrics
	ledLitGauge = metrics.MustRegisterGaugeVec(subSystem,
		"led_lit",
		"State of LED (0=off, 1=on)",
		"line")
	ledBlinksTotal = metrics.MustRegisterCounterVec(subSystem,
		"led_blinks_total",
		"Number of blink sequences started",
		"line")

	// RGB LED metrics
	rgbLedColorGauge = metrics.MustRegisterGaugeVec(subSystem,
		"rgb_led_color",
		"Color channel value (0..1) of RGB LED",
		"line", "channel")
)
