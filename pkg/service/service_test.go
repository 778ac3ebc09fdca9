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
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/bridge"
)

func testServiceConfig() Config {
	cfg := DefaultConfig()
	cfg.Bridge = bridge.TypeVirtual
	cfg.LEDs = []LEDConfig{{Name: "status", Pin: 17}}
	cfg.RGBLEDs = []RGBLEDConfig{{Name: "mood", Red: 5, Green: 6, Blue: 13}}
	cfg.PWMs = []PWMConfig{{Name: "fan", Pin: 18, Frequency: 200, Resolution: 10, Duty: 256}}
	cfg.Buttons = []ButtonConfig{{Name: "doorbell", Pin: 27, Pull: "up"}}
	return cfg
}

// newTestService creates a configured service on a virtual bridge.
// The doorbell line starts released.
func newTestService(t *testing.T) (*Service, *bridge.VirtualBridge) {
	api := bridge.NewVirtualBridge()
	api.Line(bridge.DefaultChip, 27).SetLevel(1)
	s := New(api, zerolog.Nop())
	require.NoError(t, s.Configure(testServiceConfig()))
	t.Cleanup(func() { s.Close() })
	return s, api
}

// eventRecorder collects published events.
type eventRecorder struct {
	mutex  sync.Mutex
	events []Event
}

func (r *eventRecorder) add(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) contains(kind Kind, name, eventType string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, e := range r.events {
		if e.Kind == kind && e.Name == name && e.Type == eventType {
			return true
		}
	}
	return false
}

func TestServiceConfigure(t *testing.T) {
	s, api := newTestService(t)

	assert.Equal(t, []string{"status"}, s.Names(KindLED))
	assert.Equal(t, []string{"mood"}, s.Names(KindRGBLED))
	assert.Equal(t, []string{"fan"}, s.Names(KindPWM))
	assert.Equal(t, []string{"doorbell"}, s.Names(KindButton))
	assert.Empty(t, s.Names(Kind("motor")))

	for _, offset := range []int{17, 5, 6, 13, 18, 27} {
		line := api.Line(bridge.DefaultChip, offset)
		assert.True(t, line.Claimed(), "line %d", offset)
		assert.Equal(t, bridge.DefaultConsumer, line.Consumer())
	}

	p, err := s.PWM("fan")
	require.NoError(t, err)
	assert.Equal(t, float64(200), p.Frequency())
	assert.Equal(t, 10, p.Resolution().Bits())
	assert.Equal(t, 256, p.DutyCycle())
	assert.False(t, p.Running())
	assert.Equal(t, bridge.TypeVirtual, s.Bridge().Name())
	assert.Equal(t, "doorbell", s.Config().Buttons[0].Name)
}

func TestServiceReconfigure(t *testing.T) {
	s, api := newTestService(t)

	cfg := DefaultConfig()
	cfg.LEDs = []LEDConfig{{Name: "power", Pin: 4}}
	require.NoError(t, s.Configure(cfg))

	assert.Equal(t, []string{"power"}, s.Names(KindLED))
	assert.Empty(t, s.Names(KindButton))
	for _, offset := range []int{17, 5, 6, 13, 18, 27} {
		assert.False(t, api.Line(bridge.DefaultChip, offset).Claimed(), "line %d", offset)
	}
	assert.True(t, api.Line(bridge.DefaultChip, 4).Claimed())

	require.NoError(t, s.Close())
	assert.False(t, api.Line(bridge.DefaultChip, 4).Claimed())
	assert.Empty(t, s.Names(KindLED))
}

func TestServiceConfigurePartialFailure(t *testing.T) {
	api := bridge.NewVirtualBridge()
	busy, err := api.Output(bridge.DefaultChip, 18, 0, "other")
	require.NoError(t, err)
	defer busy.Close()

	s := New(api, zerolog.Nop())
	defer s.Close()
	err = s.Configure(testServiceConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fan")
	assert.True(t, errors.Is(err, bridge.LineBusyError))

	assert.Empty(t, s.Names(KindPWM))
	assert.Equal(t, []string{"status"}, s.Names(KindLED))
	assert.Equal(t, []string{"doorbell"}, s.Names(KindButton))
}

func TestServiceConfigureInvalid(t *testing.T) {
	s, _ := newTestService(t)
	cfg := testServiceConfig()
	cfg.LEDs = append(cfg.LEDs, LEDConfig{Name: "status", Pin: 20})
	err := s.Configure(cfg)
	require.Error(t, err)
	assert.True(t, IsInvalidConfig(err))
	// Existing components are kept
	assert.Equal(t, []string{"status"}, s.Names(KindLED))
}

func TestServiceNotFound(t *testing.T) {
	s, _ := newTestService(t)
	on := true
	assert.True(t, IsNotFound(s.SetLED("nope", LEDCommand{On: &on})))
	assert.True(t, IsNotFound(s.SetRGBLED("nope", RGBLEDCommand{Off: true})))
	assert.True(t, IsNotFound(s.SetPWM("nope", PWMCommand{Running: &on})))
	_, err := s.ButtonStatus("nope", false)
	assert.True(t, IsNotFound(err))
	_, err = s.LEDStatus("fan")
	assert.True(t, IsNotFound(err))
}

func TestServiceLEDCommands(t *testing.T) {
	s, api := newTestService(t)
	line := api.Line(bridge.DefaultChip, 17)

	on := true
	require.NoError(t, s.SetLED("status", LEDCommand{On: &on}))
	assert.Equal(t, 1, line.Level())
	status, err := s.LEDStatus("status")
	require.NoError(t, err)
	assert.Equal(t, LEDStatus{Name: "status", Line: "gpiochip0:17", Lit: true}, status)

	require.NoError(t, s.SetLED("status", LEDCommand{Toggle: true}))
	assert.Equal(t, 0, line.Level())

	blink := &BlinkCommand{On: Duration(5 * time.Millisecond), Count: 2}
	require.NoError(t, s.SetLED("status", LEDCommand{Blink: blink}))
	assert.Eventually(t, func() bool {
		st, _ := s.LEDStatus("status")
		return !st.Blinking
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, line.Level())

	err = s.SetLED("status", LEDCommand{})
	assert.True(t, IsInvalidCommand(err))
}

func TestServiceRGBLEDCommands(t *testing.T) {
	s, _ := newTestService(t)

	red, blue := 1.0, 0.25
	require.NoError(t, s.SetRGBLED("mood", RGBLEDCommand{Red: &red}))
	require.NoError(t, s.SetRGBLED("mood", RGBLEDCommand{Blue: &blue}))
	status, err := s.RGBLEDStatus("mood")
	require.NoError(t, err)
	assert.Equal(t, 1.0, status.Color.Red)
	assert.Equal(t, 0.0, status.Color.Green)
	assert.Equal(t, 0.25, status.Color.Blue)
	assert.Equal(t, []string{"gpiochip0:5", "gpiochip0:6", "gpiochip0:13"}, status.Lines)

	freq := 250.0
	require.NoError(t, s.SetRGBLED("mood", RGBLEDCommand{Frequency: &freq, Off: true}))
	status, err = s.RGBLEDStatus("mood")
	require.NoError(t, err)
	assert.True(t, status.Color.IsOff())
	assert.Equal(t, 250.0, status.Frequency)

	err = s.SetRGBLED("mood", RGBLEDCommand{})
	assert.True(t, IsInvalidCommand(err))
}

func TestServicePWMCommands(t *testing.T) {
	s, api := newTestService(t)

	running := true
	duty := 1023
	require.NoError(t, s.SetPWM("fan", PWMCommand{Duty: &duty, Running: &running}))
	status, err := s.PWMStatus("fan")
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 1023, status.Duty)
	assert.Equal(t, 10, status.Resolution)
	assert.Equal(t, "gpiochip0:18", status.Line)
	assert.Eventually(t, func() bool {
		return api.Line(bridge.DefaultChip, 18).Level() == 1
	}, time.Second, 5*time.Millisecond)

	bits := 8
	ratio := 0.5
	require.NoError(t, s.SetPWM("fan", PWMCommand{Resolution: &bits}))
	status, _ = s.PWMStatus("fan")
	assert.Equal(t, 8, status.Resolution)
	require.NoError(t, s.SetPWM("fan", PWMCommand{Ratio: &ratio}))
	status, _ = s.PWMStatus("fan")
	assert.InDelta(t, 0.5, status.Ratio, 0.01)

	running = false
	require.NoError(t, s.SetPWM("fan", PWMCommand{Running: &running}))
	status, _ = s.PWMStatus("fan")
	assert.False(t, status.Running)
	assert.Equal(t, 0, api.Line(bridge.DefaultChip, 18).Level())

	bits = 9
	assert.True(t, IsInvalidCommand(s.SetPWM("fan", PWMCommand{Resolution: &bits})))
	assert.True(t, IsInvalidCommand(s.SetPWM("fan", PWMCommand{})))
}

func TestServiceButtonEvents(t *testing.T) {
	s, api := newTestService(t)
	rec := &eventRecorder{}
	cancel := s.Events().Subscribe(rec.add)
	defer cancel()

	line := api.Line(bridge.DefaultChip, 27)
	line.SetLevel(0)
	assert.Eventually(t, func() bool {
		return rec.contains(KindButton, "doorbell", "pressed")
	}, 2*time.Second, 5*time.Millisecond)

	status, err := s.ButtonStatus("doorbell", true)
	require.NoError(t, err)
	assert.True(t, status.Pressed)
	require.NotNil(t, status.Live)
	assert.True(t, *status.Live)
	assert.Equal(t, "up", status.Pull)

	line.SetLevel(1)
	assert.Eventually(t, func() bool {
		return rec.contains(KindButton, "doorbell", "released")
	}, 2*time.Second, 5*time.Millisecond)

	on := true
	require.NoError(t, s.SetLED("status", LEDCommand{On: &on}))
	assert.Eventually(t, func() bool {
		return rec.contains(KindLED, "status", EventTypeSet)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServiceStatus(t *testing.T) {
	s, _ := newTestService(t)
	status := s.Status()
	require.Len(t, status.LEDs, 1)
	require.Len(t, status.RGBLEDs, 1)
	require.Len(t, status.PWMs, 1)
	require.Len(t, status.Buttons, 1)
	assert.Equal(t, "doorbell", status.Buttons[0].Name)
	assert.Nil(t, status.Buttons[0].Live)
	assert.False(t, status.Buttons[0].Pressed)
}

func TestEventHub(t *testing.T) {
	hub := NewEventHub()
	rec := &eventRecorder{}
	cancel := hub.Subscribe(rec.add)
	hub.Publish(Event{Kind: KindPWM, Name: "fan", Type: EventTypeSet})
	assert.Eventually(t, func() bool {
		return rec.contains(KindPWM, "fan", EventTypeSet)
	}, time.Second, 5*time.Millisecond)

	rec.mutex.Lock()
	assert.False(t, rec.events[0].Time.IsZero())
	rec.mutex.Unlock()
	cancel()
}
