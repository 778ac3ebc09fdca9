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

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/service"
)

// Service is the part of the service used by the UI.
type Service interface {
	Status() service.Status
	SetLED(name string, cmd service.LEDCommand) error
	SetRGBLED(name string, cmd service.RGBLEDCommand) error
	SetPWM(name string, cmd service.PWMCommand) error
}

// UI serves the terminal UI over SSH.
type UI struct {
	log zerolog.Logger
	svc Service
}

// New creates a UI for the given service.
func New(svc Service, log zerolog.Logger) *UI {
	return &UI{
		log: log.With().Str("component", "ui").Logger(),
		svc: svc,
	}
}

// Handler creates the model for a new SSH session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	u.log.Debug().Str("user", s.User()).Str("term", pty.Term).Msg("New UI session")
	r := NewRoot(u.svc, pty.Term, pty.Window.Width, pty.Window.Height)
	return r, []tea.ProgramOption{tea.WithAltScreen()}
}
