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
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/service"
	"github.com/binkynet/gpiodzero/pkg/util"
)

// Bridge connects the components of a service to MQTT.
// Button events and component states are published,
// commands are received on <prefix>/<kind>/<name>/set.
type Bridge struct {
	log    zerolog.Logger
	svc    *service.Service
	client Client
	prefix string
}

// NewBridge creates a bridge between given service and MQTT client.
func NewBridge(svc *service.Service, client Client, prefix string, log zerolog.Logger) *Bridge {
	if prefix == "" {
		prefix = service.DefaultTopicPrefix
	}
	return &Bridge{
		log:    log.With().Str("component", "mqtt-bridge").Logger(),
		svc:    svc,
		client: client,
		prefix: normalizePrefix(prefix),
	}
}

// Run the bridge until the given context is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.client.Close()
	if err := util.Retry(ctx, b.log, "Connect to MQTT", b.client.Connect); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return maskAny(err)
	}
	filter := commandFilter(b.prefix)
	if err := b.client.Subscribe(ctx, filter, QosDefault, func(topic string, payload []byte) {
		b.handleCommand(ctx, topic, payload)
	}); err != nil {
		return maskAny(err)
	}
	b.log.Info().Str("topic", filter).Msg("Listening for commands")

	cancel := b.svc.Events().Subscribe(func(e service.Event) {
		b.publishEvent(ctx, e)
	})
	defer cancel()
	b.publishAllStates(ctx)

	<-ctx.Done()
	return nil
}

// handleCommand executes a command message.
func (b *Bridge) handleCommand(ctx context.Context, topic string, payload []byte) {
	kind, name, ok := parseCommandTopic(b.prefix, topic)
	if !ok {
		b.log.Debug().Str("topic", topic).Msg("Ignoring message on unknown topic")
		return
	}
	log := b.log.With().Str("kind", string(kind)).Str("name", name).Logger()
	if err := b.execute(kind, name, payload); err != nil {
		commandsTotal.WithLabelValues(string(kind), "failed").Inc()
		log.Warn().Err(err).Str("payload", string(payload)).Msg("Command failed")
		return
	}
	commandsTotal.WithLabelValues(string(kind), "ok").Inc()
	log.Debug().Msg("Command executed")
}

// execute parses and executes a command for the given component.
func (b *Bridge) execute(kind service.Kind, name string, payload []byte) error {
	switch kind {
	case service.KindLED:
		cmd, err := parseLEDCommand(payload)
		if err != nil {
			return err
		}
		return b.svc.SetLED(name, cmd)
	case service.KindRGBLED:
		cmd, err := parseRGBLEDCommand(payload)
		if err != nil {
			return err
		}
		return b.svc.SetRGBLED(name, cmd)
	case service.KindPWM:
		cmd, err := parsePWMCommand(payload)
		if err != nil {
			return err
		}
		return b.svc.SetPWM(name, cmd)
	}
	return maskAny(service.InvalidCommandError)
}

// publishEvent publishes a service event.
func (b *Bridge) publishEvent(ctx context.Context, e service.Event) {
	if e.Kind == service.KindButton {
		msg := buttonMessage{Event: e.Type, Time: e.Time.Format(time.RFC3339Nano)}
		if err := b.client.Publish(ctx, ButtonTopic(b.prefix, e.Name), msg, QosDefault, false); err != nil {
			b.log.Warn().Err(err).Str("button", e.Name).Msg("Failed to publish button event")
		}
	}
	b.publishState(ctx, e.Kind, e.Name)
}

// publishAllStates publishes the state of all components.
func (b *Bridge) publishAllStates(ctx context.Context) {
	for _, kind := range []service.Kind{service.KindLED, service.KindRGBLED, service.KindPWM, service.KindButton} {
		for _, name := range b.svc.Names(kind) {
			b.publishState(ctx, kind, name)
		}
	}
}

// publishState publishes the state of a single component as retained message.
func (b *Bridge) publishState(ctx context.Context, kind service.Kind, name string) {
	var state interface{}
	var err error
	switch kind {
	case service.KindLED:
		state, err = b.svc.LEDStatus(name)
	case service.KindRGBLED:
		state, err = b.svc.RGBLEDStatus(name)
	case service.KindPWM:
		state, err = b.svc.PWMStatus(name)
	case service.KindButton:
		state, err = b.svc.ButtonStatus(name, false)
	default:
		return
	}
	if err != nil {
		// Component removed by a reconfiguration
		return
	}
	if err := b.client.Publish(ctx, StateTopic(b.prefix, kind, name), state, QosDefault, true); err != nil {
		b.log.Warn().Err(err).Str("kind", string(kind)).Str("name", name).Msg("Failed to publish state")
	}
}
