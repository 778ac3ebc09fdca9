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
	"time"

	"github.com/mattn/go-pubsub"
)

// Kind of a component
type Kind string

const (
	KindLED    Kind = "led"
	KindRGBLED Kind = "rgb_led"
	KindPWM    Kind = "pwm"
	KindButton Kind = "button"
)

// Event is published when a component changes state.
type Event struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	// Type of event, e.g. "pressed" for a button or "set" for a command
	Type string    `json:"event"`
	Time time.Time `json:"time"`
}

// EventType of a successfully executed command
const EventTypeSet = "set"

// EventHub distributes component events to subscribers.
// Subscribers are invoked asynchronously.
type EventHub struct {
	ps *pubsub.PubSub
}

// NewEventHub creates a new hub.
func NewEventHub() *EventHub {
	return &EventHub{ps: pubsub.New()}
}

// Publish the given event to all subscribers.
func (h *EventHub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	eventsTotal.WithLabelValues(string(e.Kind), e.Type).Inc()
	h.ps.Pub(e)
}

// Subscribe registers a callback for all events.
// Call the returned function to unsubscribe.
func (h *EventHub) Subscribe(cb func(Event)) context.CancelFunc {
	wcb := func(e Event) {
		cb(e)
	}
	h.ps.Sub(wcb)
	return func() {
		h.ps.Leave(wcb)
	}
}
