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
	"context"
	"sort"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/components"
	"github.com/binkynet/gpiodzero/pkg/devices"
)

// Service holds the configured components.
type Service struct {
	log    zerolog.Logger
	bridge bridge.API
	events *EventHub

	mutex     sync.RWMutex
	config    Config
	startedAt time.Time
	leds      map[string]*components.LED
	rgbLeds   map[string]*components.RGBLED
	pwms      map[string]*devices.SoftPWM
	buttons   map[string]*components.Button
}

// New creates a service without components.
// Call Configure to create them.
func New(api bridge.API, log zerolog.Logger) *Service {
	return &Service{
		log:       log.With().Str("component", "service").Logger(),
		bridge:    api,
		events:    NewEventHub(),
		config:    DefaultConfig(),
		startedAt: time.Now(),
		leds:      make(map[string]*components.LED),
		rgbLeds:   make(map[string]*components.RGBLED),
		pwms:      make(map[string]*devices.SoftPWM),
		buttons:   make(map[string]*components.Button),
	}
}

// Events returns the hub on which component events are published.
func (s *Service) Events() *EventHub {
	return s.events
}

// Bridge returns the line I/O bridge.
func (s *Service) Bridge() bridge.API {
	return s.bridge
}

// Config returns the current configuration.
func (s *Service) Config() Config {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.config
}

// Uptime returns the time since the service was created.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Configure closes all existing components and creates the components
// of the given configuration.
// Components that cannot be created are logged and skipped; their errors
// are returned as an aggregate.
func (s *Service) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		configLoadsTotal.WithLabelValues("invalid").Inc()
		return maskAny(err)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ae aerr.AggregateError
	if err := s.closeComponents(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close some components")
	}
	s.config = cfg
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = bridge.DefaultConsumer
	}
	failed := func(kind Kind, name string, err error) {
		s.log.Error().Err(err).Str("kind", string(kind)).Str("name", name).Msg("Failed to create component")
		componentErrorsTotal.WithLabelValues(string(kind)).Inc()
		ae.Add(errors.Wrapf(err, "%s '%s'", kind, name))
	}

	for _, x := range cfg.LEDs {
		l, err := components.NewLED(s.bridge, cfg.chipOrDefault(x.Chip), x.Pin, s.log, devices.WithConsumer(consumer))
		if err != nil {
			failed(KindLED, x.Name, err)
			continue
		}
		s.leds[x.Name] = l
	}
	for _, x := range cfg.RGBLEDs {
		l, err := components.NewRGBLED(s.bridge, components.RGBLEDConfig{
			Chip:      cfg.chipOrDefault(x.Chip),
			Red:       x.Red,
			Green:     x.Green,
			Blue:      x.Blue,
			Consumer:  consumer,
			Frequency: x.Frequency,
		}, s.log)
		if err != nil {
			failed(KindRGBLED, x.Name, err)
			continue
		}
		s.rgbLeds[x.Name] = l
	}
	for _, x := range cfg.PWMs {
		p, err := devices.OpenSoftPWM(s.bridge, cfg.chipOrDefault(x.Chip), x.Pin, x.frequency(), s.log, devices.WithConsumer(consumer))
		if err != nil {
			failed(KindPWM, x.Name, err)
			continue
		}
		p.SetDutyCycle(x.resolution(), x.Duty)
		if x.Start {
			if err := p.Start(); err != nil {
				p.Close()
				failed(KindPWM, x.Name, err)
				continue
			}
		}
		s.pwms[x.Name] = p
	}
	for _, x := range cfg.Buttons {
		name := x.Name
		b, err := components.NewButton(s.bridge, x.componentConfig(cfg.chipOrDefault(x.Chip), consumer), s.log)
		if err != nil {
			failed(KindButton, name, err)
			continue
		}
		s.attachButton(name, b)
		s.buttons[name] = b
	}

	s.updateGauges()
	configLoadsTotal.WithLabelValues("ok").Inc()
	s.log.Info().
		Int("leds", len(s.leds)).
		Int("rgb_leds", len(s.rgbLeds)).
		Int("pwms", len(s.pwms)).
		Int("buttons", len(s.buttons)).
		Msg("Configured components")
	return ae.AsError()
}

// attachButton publishes all events of the given button.
func (s *Service) attachButton(name string, b *components.Button) {
	publish := func(event components.ButtonEvent) func() {
		return func() {
			s.events.Publish(Event{Kind: KindButton, Name: name, Type: string(event)})
		}
	}
	b.SetOnPress(publish(components.ButtonPressed))
	b.SetOnRelease(publish(components.ButtonReleased))
	b.SetOnClick(publish(components.ButtonClicked))
	b.SetOnDoubleClick(publish(components.ButtonDoubleClicked))
	b.SetOnHeld(publish(components.ButtonHeld))
}

// closeComponents closes and forgets all components.
// Requires mutex to be locked.
func (s *Service) closeComponents() error {
	var ae aerr.AggregateError
	for name, b := range s.buttons {
		ae.Add(b.Close())
		delete(s.buttons, name)
	}
	for name, p := range s.pwms {
		ae.Add(p.Close())
		delete(s.pwms, name)
	}
	for name, l := range s.rgbLeds {
		ae.Add(l.Close())
		delete(s.rgbLeds, name)
	}
	for name, l := range s.leds {
		ae.Add(l.Close())
		delete(s.leds, name)
	}
	s.updateGauges()
	return ae.AsError()
}

// updateGauges sets the component gauges. Requires mutex to be locked.
func (s *Service) updateGauges() {
	componentsGauge.WithLabelValues(string(KindLED)).Set(float64(len(s.leds)))
	componentsGauge.WithLabelValues(string(KindRGBLED)).Set(float64(len(s.rgbLeds)))
	componentsGauge.WithLabelValues(string(KindPWM)).Set(float64(len(s.pwms)))
	componentsGauge.WithLabelValues(string(KindButton)).Set(float64(len(s.buttons)))
}

// Run the service until the given context is canceled.
// All components are closed when done.
func (s *Service) Run(ctx context.Context) error {
	<-ctx.Done()
	s.log.Debug().Msg("Closing components")
	return s.Close()
}

// Close all components.
func (s *Service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closeComponents()
}

// Names returns the sorted names of all components of given kind.
func (s *Service) Names(kind Kind) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []string
	switch kind {
	case KindLED:
		for name := range s.leds {
			result = append(result, name)
		}
	case KindRGBLED:
		for name := range s.rgbLeds {
			result = append(result, name)
		}
	case KindPWM:
		for name := range s.pwms {
			result = append(result, name)
		}
	case KindButton:
		for name := range s.buttons {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// LED returns the LED with given name.
func (s *Service) LED(name string) (*components.LED, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if l, found := s.leds[name]; found {
		return l, nil
	}
	return nil, errors.Wrapf(NotFoundError, "led '%s'", name)
}

// RGBLED returns the RGB LED with given name.
func (s *Service) RGBLED(name string) (*components.RGBLED, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if l, found := s.rgbLeds[name]; found {
		return l, nil
	}
	return nil, errors.Wrapf(NotFoundError, "rgb_led '%s'", name)
}

// PWM returns the soft PWM with given name.
func (s *Service) PWM(name string) (*devices.SoftPWM, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if p, found := s.pwms[name]; found {
		return p, nil
	}
	return nil, errors.Wrapf(NotFoundError, "pwm '%s'", name)
}

// Button returns the button with given name.
func (s *Service) Button(name string) (*components.Button, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if b, found := s.buttons[name]; found {
		return b, nil
	}
	return nil, errors.Wrapf(NotFoundError, "button '%s'", name)
}
