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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/gpiodzero/pkg/service"
)

const (
	refreshInterval = time.Millisecond * 500
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
)

// component identifies a row of the table.
type component struct {
	kind service.Kind
	name string
}

// Root is the model of the terminal UI.
type Root struct {
	svc     Service
	term    string
	width   int
	height  int
	loadAvg string
	message string

	table      table.Model
	components []component
	status     service.Status
}

var _ tea.Model = Root{}

// NewRoot creates the root model.
func NewRoot(svc Service, term string, width, height int) Root {
	r := Root{
		svc:    svc,
		term:   term,
		width:  width,
		height: height,
		table: table.New(
			table.WithColumns([]table.Column{
				{Title: "Kind", Width: 8},
				{Title: "Name", Width: 16},
				{Title: "Line", Width: 30},
				{Title: "State", Width: 36},
			}),
			table.WithFocused(true),
		),
	}
	r = r.resize()
	return r.refresh()
}

// Init is the first function that will be called.
func (r Root) Init() tea.Cmd {
	return doRefresh()
}

// Update is called when a message is received.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		r.loadAvg = msg.loadAvg
		return r.refresh(), doRefresh()
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		return r.resize(), nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case " ", "enter":
			return r.toggle().refresh(), nil
		}
	}
	var cmd tea.Cmd
	r.table, cmd = r.table.Update(msg)
	return r, cmd
}

// View renders the UI.
func (r Root) View() string {
	var sb strings.Builder
	sb.WriteString(r.headerView())
	sb.WriteString(r.table.View())
	sb.WriteString("\n")
	if r.message != "" {
		sb.WriteString(messageStyle.Render(r.message))
		sb.WriteString("\n")
	}
	sb.WriteString("space - Toggle LED/PWM   ↑/↓ - Select   q - Disconnect\n")
	return sb.String()
}

func (r Root) headerView() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		headerStyle.Render("gpiodzero "),
		r.loadAvg,
	) + "\n"
}

// resize the table to the window.
func (r Root) resize() Root {
	if h := r.height - 6; h > 3 {
		r.table.SetHeight(h)
	}
	if r.width > 0 {
		r.table.SetWidth(r.width)
	}
	return r
}

// refresh reloads the state of all components.
func (r Root) refresh() Root {
	r.status = r.svc.Status()
	var rows []table.Row
	var components []component
	for _, x := range r.status.LEDs {
		components = append(components, component{service.KindLED, x.Name})
		rows = append(rows, table.Row{string(service.KindLED), x.Name, x.Line, ledState(x)})
	}
	for _, x := range r.status.RGBLEDs {
		components = append(components, component{service.KindRGBLED, x.Name})
		rows = append(rows, table.Row{string(service.KindRGBLED), x.Name, strings.Join(x.Lines, ","), rgbState(x)})
	}
	for _, x := range r.status.PWMs {
		components = append(components, component{service.KindPWM, x.Name})
		rows = append(rows, table.Row{string(service.KindPWM), x.Name, x.Line, pwmState(x)})
	}
	for _, x := range r.status.Buttons {
		components = append(components, component{service.KindButton, x.Name})
		rows = append(rows, table.Row{string(service.KindButton), x.Name, x.Line, buttonState(x)})
	}
	r.components = components
	r.table.SetRows(rows)
	return r
}

// selected returns the component at the cursor.
func (r Root) selected() (component, bool) {
	i := r.table.Cursor()
	if i < 0 || i >= len(r.components) {
		return component{}, false
	}
	return r.components[i], true
}

// toggle the selected component.
func (r Root) toggle() Root {
	c, ok := r.selected()
	if !ok {
		return r
	}
	var err error
	switch c.kind {
	case service.KindLED:
		err = r.svc.SetLED(c.name, service.LEDCommand{Toggle: true})
	case service.KindRGBLED:
		cmd := service.RGBLEDCommand{Off: true}
		for _, x := range r.status.RGBLEDs {
			if x.Name == c.name && x.Color.IsOff() {
				white := 1.0
				cmd = service.RGBLEDCommand{Red: &white, Green: &white, Blue: &white}
			}
		}
		err = r.svc.SetRGBLED(c.name, cmd)
	case service.KindPWM:
		running := true
		for _, x := range r.status.PWMs {
			if x.Name == c.name {
				running = !x.Running
			}
		}
		err = r.svc.SetPWM(c.name, service.PWMCommand{Running: &running})
	default:
		r.message = fmt.Sprintf("%s '%s' cannot be toggled", c.kind, c.name)
		return r
	}
	if err != nil {
		r.message = err.Error()
	} else {
		r.message = ""
	}
	return r
}

func ledState(x service.LEDStatus) string {
	s := "off"
	if x.Lit {
		s = "on"
	}
	if x.Blinking {
		s += " (blinking)"
	}
	return s
}

func rgbState(x service.RGBLEDStatus) string {
	s := fmt.Sprintf("R=%.2f G=%.2f B=%.2f @ %s", x.Color.Red, x.Color.Green, x.Color.Blue, humanize.SI(x.Frequency, "Hz"))
	if x.Blinking {
		s += " (blinking)"
	}
	return s
}

func pwmState(x service.PWMStatus) string {
	s := "stopped"
	if x.Running {
		s = "running"
	}
	s = fmt.Sprintf("%s %.0f%% @ %s", s, x.Ratio*100, humanize.SI(x.Frequency, "Hz"))
	if x.Error != "" {
		s += " error: " + x.Error
	}
	return s
}

func buttonState(x service.ButtonStatus) string {
	s := "released"
	if x.Pressed {
		s = "pressed"
	}
	if x.Error != "" {
		s += " error: " + x.Error
	}
	return s
}

type refreshMsg struct {
	loadAvg string
}

func doRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		content, err := os.ReadFile("/proc/loadavg")
		if err != nil {
			return refreshMsg{loadAvg: err.Error()}
		}
		return refreshMsg{loadAvg: strings.TrimSpace(string(content))}
	})
}
