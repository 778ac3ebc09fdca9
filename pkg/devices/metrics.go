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

package devices

import (
	"github.com/binkynet/gpiodzero/pkg/metrics"
)

const (
	subSystem = "devices"
)

var (
	// Number of open pins
	openPinsGauge = metrics.MustRegisterGaugeVec(subSystem,
		"open_pins",
		"Number of open pins",
		"direction")
	// Pin I/O errors
	pinReadErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_read_errors_total",
		"Number of failed pin reads",
		"line")
	pinWriteErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pin_write_errors_total",
		"Number of failed pin writes",
		"line")

	// Soft PWM metrics
	pwmRunningGauge = metrics.MustRegisterGaugeVec(subSystem,
		"pwm_running",
		"Running state of soft PWM (0=stopped, 1=running)",
		"line")
	pwmDutyRatioGauge = metrics.MustRegisterGaugeVec(subSystem,
		"pwm_duty_ratio",
		"Duty ratio (0..1) of soft PWM",
		"line")
	pwmStartsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pwm_starts_total",
		"Number of times a soft PWM loop was started",
		"line")
	pwmLoopErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"pwm_loop_errors_total",
		"Number of soft PWM loops terminated by an I/O error",
		"line")
)
