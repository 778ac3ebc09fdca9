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
	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// ChipInfo describes a GPIO chip.
type ChipInfo struct {
	Name  string
	Label string
	Lines int
	// Number of lines requested by any consumer
	Used int
}

// ListChips returns the GPIO chips of the system.
func ListChips() ([]ChipInfo, error) {
	var result []ChipInfo
	for _, name := range gpiocdev.Chips() {
		info, err := GetChipInfo(name)
		if err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, nil
}

// GetChipInfo returns information of the chip with given name or path.
func GetChipInfo(name string) (ChipInfo, error) {
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return ChipInfo{}, errors.Wrapf(err, "open chip '%s'", name)
	}
	defer c.Close()
	info := ChipInfo{
		Name:  c.Name,
		Label: c.Label,
		Lines: c.Lines(),
	}
	for offset := 0; offset < info.Lines; offset++ {
		if li, err := c.LineInfo(offset); err == nil && li.Used {
			info.Used++
		}
	}
	return info, nil
}
