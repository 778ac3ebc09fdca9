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
	"github.com/pkg/errors"

	"github.com/binkynet/gpiodzero/pkg/components"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

// BlinkCommand requests a blink sequence.
type BlinkCommand struct {
	// LED on/off times
	On  Duration `json:"on,omitempty"`
	Off Duration `json:"off,omitempty"`
	// Number of blinks, 0 means forever (LED only)
	Count int `json:"count,omitempty"`
	// RGB LED on/off time
	Interval Duration `json:"interval,omitempty"`
	// RGB LED: blink for this duration instead of Count times
	Duration Duration `json:"duration,omitempty"`
}

// LEDCommand changes the state of an LED.
type LEDCommand struct {
	On     *bool         `json:"on,omitempty"`
	Toggle bool          `json:"toggle,omitempty"`
	Blink  *BlinkCommand `json:"blink,omitempty"`
}

// RGBLEDCommand changes the state of an RGB LED.
type RGBLEDCommand struct {
	Red       *float64      `json:"red,omitempty"`
	Green     *float64      `json:"green,omitempty"`
	Blue      *float64      `json:"blue,omitempty"`
	Off       bool          `json:"off,omitempty"`
	Frequency *float64      `json:"frequency,omitempty"`
	Blink     *BlinkCommand `json:"blink,omitempty"`
}

// PWMCommand changes the state of a soft PWM.
type PWMCommand struct {
	Frequency *float64 `json:"frequency,omitempty"`
	// Resolution in bits (8|10|12|16)
	Resolution *int     `json:"resolution,omitempty"`
	Duty       *int     `json:"duty,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty"`
	Running    *bool    `json:"running,omitempty"`
}

// SetLED executes the given command on the LED with given name.
func (s *Service) SetLED(name string, cmd LEDCommand) error {
	l, err := s.LED(name)
	if err != nil {
		return err
	}
	commandsTotal.WithLabelValues(string(KindLED), name).Inc()
	switch {
	case cmd.Blink != nil:
		b := cmd.Blink
		onTime, offTime := b.On.D(), b.Off.D()
		if onTime == 0 {
			onTime = b.Interval.D()
		}
		if offTime == 0 {
			offTime = onTime
		}
		if err := l.Blink(onTime, offTime, b.Count); err != nil {
			return maskAny(err)
		}
	case cmd.Toggle:
		if err := l.Toggle(); err != nil {
			return maskAny(err)
		}
	case cmd.On != nil:
		if err := l.Set(*cmd.On); err != nil {
			return maskAny(err)
		}
	default:
		return errors.Wrap(InvalidCommandError, "expected on, toggle or blink")
	}
	s.events.Publish(Event{Kind: KindLED, Name: name, Type: EventTypeSet})
	return nil
}

// SetRGBLED executes the given command on the RGB LED with given name.
func (s *Service) SetRGBLED(name string, cmd RGBLEDCommand) error {
	l, err := s.RGBLED(name)
	if err != nil {
		return err
	}
	commandsTotal.WithLabelValues(string(KindRGBLED), name).Inc()
	executed := false
	if cmd.Frequency != nil {
		if err := l.SetFrequency(*cmd.Frequency); err != nil {
			return maskAny(err)
		}
		executed = true
	}
	if cmd.Off {
		if err := l.Off(); err != nil {
			return maskAny(err)
		}
		executed = true
	} else if cmd.Red != nil || cmd.Green != nil || cmd.Blue != nil {
		c := l.Color()
		if cmd.Red != nil {
			c.Red = *cmd.Red
		}
		if cmd.Green != nil {
			c.Green = *cmd.Green
		}
		if cmd.Blue != nil {
			c.Blue = *cmd.Blue
		}
		if err := l.SetColor(c.Red, c.Green, c.Blue); err != nil {
			return maskAny(err)
		}
		executed = true
	}
	if b := cmd.Blink; b != nil {
		interval := b.Interval.D()
		if interval == 0 {
			interval = b.On.D()
		}
		if b.Duration > 0 {
			err = l.BlinkFor(b.Duration.D(), interval)
		} else {
			err = l.Blink(b.Count, interval)
		}
		if err != nil {
			return maskAny(err)
		}
		executed = true
	}
	if !executed {
		return errors.Wrap(InvalidCommandError, "expected red, green, blue, off, frequency or blink")
	}
	s.events.Publish(Event{Kind: KindRGBLED, Name: name, Type: EventTypeSet})
	return nil
}

// SetPWM executes the given command on the soft PWM with given name.
// Configuration changes are applied before the running state.
func (s *Service) SetPWM(name string, cmd PWMCommand) error {
	p, err := s.PWM(name)
	if err != nil {
		return err
	}
	commandsTotal.WithLabelValues(string(KindPWM), name).Inc()
	executed := false
	if cmd.Frequency != nil {
		if err := p.SetFrequency(*cmd.Frequency); err != nil {
			return maskAny(err)
		}
		executed = true
	}
	if cmd.Resolution != nil || cmd.Duty != nil {
		res := p.Resolution()
		if cmd.Resolution != nil {
			if res, err = devices.ResolutionFromBits(*cmd.Resolution); err != nil {
				return errors.Wrap(InvalidCommandError, err.Error())
			}
		}
		duty := p.DutyCycle()
		if cmd.Duty != nil {
			duty = *cmd.Duty
		}
		if err := p.SetDutyCycle(res, duty); err != nil {
			return maskAny(err)
		}
		executed = true
	} else if cmd.Ratio != nil {
		p.SetDutyRatio(*cmd.Ratio)
		executed = true
	}
	if cmd.Running != nil {
		if *cmd.Running {
			err = p.Start()
		} else {
			err = p.Stop()
		}
		if err != nil {
			return maskAny(err)
		}
		executed = true
	}
	if !executed {
		return errors.Wrap(InvalidCommandError, "expected frequency, resolution, duty, ratio or running")
	}
	s.events.Publish(Event{Kind: KindPWM, Name: name, Type: EventTypeSet})
	return nil
}

// LEDStatus is the state of an LED.
type LEDStatus struct {
	Name     string `json:"name"`
	Line     string `json:"line"`
	Lit      bool   `json:"lit"`
	Blinking bool   `json:"blinking"`
}

// RGBLEDStatus is the state of an RGB LED.
type RGBLEDStatus struct {
	Name      string           `json:"name"`
	Lines     []string         `json:"lines"`
	Color     components.Color `json:"color"`
	Frequency float64          `json:"frequency"`
	Blinking  bool             `json:"blinking"`
}

// PWMStatus is the state of a soft PWM.
type PWMStatus struct {
	Name       string  `json:"name"`
	Line       string  `json:"line"`
	Frequency  float64 `json:"frequency"`
	Resolution int     `json:"resolution"`
	Duty       int     `json:"duty"`
	Ratio      float64 `json:"ratio"`
	Running    bool    `json:"running"`
	Error      string  `json:"error,omitempty"`
}

// ButtonStatus is the state of a button.
type ButtonStatus struct {
	Name    string `json:"name"`
	Line    string `json:"line"`
	Pull    string `json:"pull"`
	Pressed bool   `json:"pressed"`
	// Live sample of the line, only set when requested
	Live  *bool  `json:"live,omitempty"`
	Error string `json:"error,omitempty"`
}

// Status of all components.
type Status struct {
	LEDs    []LEDStatus    `json:"leds"`
	RGBLEDs []RGBLEDStatus `json:"rgb_leds"`
	PWMs    []PWMStatus    `json:"pwms"`
	Buttons []ButtonStatus `json:"buttons"`
}

// LEDStatus returns the state of the LED with given name.
func (s *Service) LEDStatus(name string) (LEDStatus, error) {
	l, err := s.LED(name)
	if err != nil {
		return LEDStatus{}, err
	}
	return LEDStatus{
		Name:     name,
		Line:     l.Pin().Line(),
		Lit:      l.IsLit(),
		Blinking: l.Blinking(),
	}, nil
}

// RGBLEDStatus returns the state of the RGB LED with given name.
func (s *Service) RGBLEDStatus(name string) (RGBLEDStatus, error) {
	l, err := s.RGBLED(name)
	if err != nil {
		return RGBLEDStatus{}, err
	}
	r, g, b := l.Channels()
	return RGBLEDStatus{
		Name:      name,
		Lines:     []string{r.Pin().Line(), g.Pin().Line(), b.Pin().Line()},
		Color:     l.Color(),
		Frequency: l.Frequency(),
		Blinking:  l.Blinking(),
	}, nil
}

// PWMStatus returns the state of the soft PWM with given name.
func (s *Service) PWMStatus(name string) (PWMStatus, error) {
	p, err := s.PWM(name)
	if err != nil {
		return PWMStatus{}, err
	}
	status := PWMStatus{
		Name:       name,
		Line:       p.Pin().Line(),
		Frequency:  p.Frequency(),
		Resolution: p.Resolution().Bits(),
		Duty:       p.DutyCycle(),
		Ratio:      p.DutyRatio(),
		Running:    p.Running(),
	}
	if err := p.Err(); err != nil {
		status.Error = err.Error()
	}
	return status, nil
}

// ButtonStatus returns the state of the button with given name.
// If live is set, the line is sampled as well.
func (s *Service) ButtonStatus(name string, live bool) (ButtonStatus, error) {
	b, err := s.Button(name)
	if err != nil {
		return ButtonStatus{}, err
	}
	status := ButtonStatus{
		Name:    name,
		Line:    b.Pin().Line(),
		Pull:    b.Config().Pull.String(),
		Pressed: b.State(),
	}
	if err := b.Err(); err != nil {
		status.Error = err.Error()
	}
	if live {
		pressed, err := b.IsPressed()
		if err != nil {
			return status, maskAny(err)
		}
		status.Live = &pressed
	}
	return status, nil
}

// Status returns the state of all components, sorted by name.
func (s *Service) Status() Status {
	var result Status
	for _, name := range s.Names(KindLED) {
		if x, err := s.LEDStatus(name); err == nil {
			result.LEDs = append(result.LEDs, x)
		}
	}
	for _, name := range s.Names(KindRGBLED) {
		if x, err := s.RGBLEDStatus(name); err == nil {
			result.RGBLEDs = append(result.RGBLEDs, x)
		}
	}
	for _, name := range s.Names(KindPWM) {
		if x, err := s.PWMStatus(name); err == nil {
			result.PWMs = append(result.PWMs, x)
		}
	}
	for _, name := range s.Names(KindButton) {
		if x, err := s.ButtonStatus(name, false); err == nil {
			result.Buttons = append(result.Buttons, x)
		}
	}
	return result
}
