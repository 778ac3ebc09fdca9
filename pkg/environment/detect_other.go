//go:build !linux

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
	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/rs/zerolog"
)

// AutoDetectBridgeType returns the virtual bridge; GPIO lines are
// only supported on Linux.
func AutoDetectBridgeType(log zerolog.Logger) string {
	log.Warn().Msg("GPIO is only supported on Linux, using virtual bridge")
	return bridge.TypeVirtual
}
