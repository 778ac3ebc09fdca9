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
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/service"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeClient records publications and delivers messages to its subscribers.
type fakeClient struct {
	mutex         sync.Mutex
	connected     bool
	closed        bool
	published     []published
	subscriptions map[string]MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscriptions: make(map[string]MessageHandler)}
}

func (c *fakeClient) Connect(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connected = true
	return nil
}

func (c *fakeClient) Publish(ctx context.Context, topic string, payload interface{}, qos QOS, retained bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.published = append(c.published, published{topic: topic, payload: data, retained: retained})
	return nil
}

func (c *fakeClient) Subscribe(ctx context.Context, topic string, qos QOS, cb MessageHandler) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.subscriptions[topic] = cb
	return nil
}

func (c *fakeClient) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
	return nil
}

// deliver a message to the subscriber of given filter.
func (c *fakeClient) deliver(filter, topic, payload string) bool {
	c.mutex.Lock()
	cb, found := c.subscriptions[filter]
	c.mutex.Unlock()
	if found {
		cb(topic, []byte(payload))
	}
	return found
}

// find returns the payloads published on given topic.
func (c *fakeClient) find(topic string) [][]byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var result [][]byte
	for _, p := range c.published {
		if p.topic == topic {
			result = append(result, p.payload)
		}
	}
	return result
}

func newTestBridge(t *testing.T) (*service.Service, *bridge.VirtualBridge, *fakeClient) {
	api := bridge.NewVirtualBridge()
	api.Line(bridge.DefaultChip, 27).SetLevel(1)
	svc := service.New(api, zerolog.Nop())
	cfg := service.DefaultConfig()
	cfg.LEDs = []service.LEDConfig{{Name: "status", Pin: 17}}
	cfg.PWMs = []service.PWMConfig{{Name: "fan", Pin: 18}}
	cfg.Buttons = []service.ButtonConfig{{Name: "doorbell", Pin: 27, Pull: "up"}}
	require.NoError(t, svc.Configure(cfg))
	t.Cleanup(func() { svc.Close() })

	client := newFakeClient()
	b := NewBridge(svc, client, "home/gpio", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.True(t, client.closed)
	})
	require.Eventually(t, func() bool {
		return len(client.find(StateTopic("home/gpio", service.KindButton, "doorbell"))) > 0
	}, 2*time.Second, 5*time.Millisecond)
	return svc, api, client
}

func TestBridgeCommands(t *testing.T) {
	svc, api, client := newTestBridge(t)

	require.True(t, client.deliver("home/gpio/+/+/set", "home/gpio/led/status/set", "ON"))
	assert.Equal(t, 1, api.Line(bridge.DefaultChip, 17).Level())

	client.deliver("home/gpio/+/+/set", "home/gpio/pwm/fan/set", `{"ratio":0.25,"running":true}`)
	status, err := svc.PWMStatus("fan")
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.InDelta(t, 0.25, status.Ratio, 0.01)

	// Invalid commands are ignored
	client.deliver("home/gpio/+/+/set", "home/gpio/led/status/set", "bogus")
	client.deliver("home/gpio/+/+/set", "home/gpio/led/missing/set", "ON")
	assert.Equal(t, 1, api.Line(bridge.DefaultChip, 17).Level())

	// Executed commands publish the new state
	assert.Eventually(t, func() bool {
		for _, p := range client.find("home/gpio/led/status/state") {
			var st service.LEDStatus
			if json.Unmarshal(p, &st) == nil && st.Lit {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBridgeButtonEvents(t *testing.T) {
	_, api, client := newTestBridge(t)

	api.Line(bridge.DefaultChip, 27).SetLevel(0)
	assert.Eventually(t, func() bool {
		for _, p := range client.find("home/gpio/button/doorbell") {
			var msg buttonMessage
			if json.Unmarshal(p, &msg) == nil && msg.Event == "pressed" {
				return msg.Time != ""
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}
