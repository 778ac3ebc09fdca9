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
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// QOS is the MQTT quality of service level.
type QOS byte

const (
	QosAtMostOnce  QOS = 0
	QosAtLeastOnce QOS = 1
	QosExactlyOnce QOS = 2
	QosDefault         = QosAtLeastOnce
)

const (
	connectTimeout = time.Second * 10
	publishTimeout = time.Second * 2
)

// MessageHandler is called for every message on a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client publishes and subscribes to MQTT topics.
type Client interface {
	// Connect to the broker.
	Connect(ctx context.Context) error
	// Publish the given payload. Payloads other than string or []byte
	// are encoded as JSON.
	Publish(ctx context.Context, topic string, payload interface{}, qos QOS, retained bool) error
	// Subscribe to the given topic (filter).
	// Subscriptions are restored after a reconnect.
	Subscribe(ctx context.Context, topic string, qos QOS, cb MessageHandler) error
	// Close disconnects from the broker.
	Close() error
}

// Config of the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

type subscription struct {
	qos QOS
	cb  MessageHandler
}

type client struct {
	log    zerolog.Logger
	client mqttapi.Client

	mutex         sync.Mutex
	subscriptions map[string]subscription
}

// NewClient creates a client for the broker in the given config.
// Call Connect to connect it.
func NewClient(cfg Config, log zerolog.Logger) (Client, error) {
	if cfg.Broker == "" {
		return nil, errors.Wrap(InvalidArgumentError, "broker must be set")
	}
	c := &client{
		log:           log.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger(),
		subscriptions: make(map[string]subscription),
	}
	opts := mqttapi.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(2 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqttapi.Client, err error) {
		connectedGauge.Set(0)
		c.log.Warn().Err(err).Msg("Lost connection to MQTT broker")
	})
	c.client = mqttapi.NewClient(opts)
	return c, nil
}

// onConnect restores all subscriptions.
func (c *client) onConnect(mc mqttapi.Client) {
	connectedGauge.Set(1)
	c.log.Info().Msg("Connected to MQTT broker")
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for topic, sub := range c.subscriptions {
		if token := mc.Subscribe(topic, byte(sub.qos), sub.handler()); token.Wait() && token.Error() != nil {
			c.log.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to resubscribe")
		}
	}
}

// handler wraps the callback for the paho client.
func (s subscription) handler() mqttapi.MessageHandler {
	return func(_ mqttapi.Client, m mqttapi.Message) {
		messagesReceivedTotal.Inc()
		s.cb(m.Topic(), m.Payload())
	}
}

// Connect to the broker.
func (c *client) Connect(ctx context.Context) error {
	if c.client.IsConnected() {
		return nil
	}
	if err := wait(ctx, c.client.Connect(), connectTimeout); err != nil {
		return errors.Wrap(err, "connect to mqtt")
	}
	return nil
}

// Publish the given payload.
func (c *client) Publish(ctx context.Context, topic string, payload interface{}, qos QOS, retained bool) error {
	var data []byte
	switch x := payload.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return maskAny(err)
		}
		data = encoded
	}
	if err := wait(ctx, c.client.Publish(topic, byte(qos), retained, data), publishTimeout); err != nil {
		publishErrorsTotal.Inc()
		return errors.Wrapf(err, "publish to '%s'", topic)
	}
	messagesPublishedTotal.Inc()
	return nil
}

// Subscribe to the given topic.
func (c *client) Subscribe(ctx context.Context, topic string, qos QOS, cb MessageHandler) error {
	sub := subscription{qos: qos, cb: cb}
	c.mutex.Lock()
	c.subscriptions[topic] = sub
	c.mutex.Unlock()

	if !c.client.IsConnected() {
		// Subscribed in onConnect
		return nil
	}
	if err := wait(ctx, c.client.Subscribe(topic, byte(qos), sub.handler()), publishTimeout); err != nil {
		return errors.Wrapf(err, "subscribe to '%s'", topic)
	}
	c.log.Debug().Str("topic", topic).Msg("Subscribed")
	return nil
}

// Close disconnects from the broker.
func (c *client) Close() error {
	c.client.Disconnect(250)
	connectedGauge.Set(0)
	return nil
}

// wait for the given token to complete.
func wait(ctx context.Context, token mqttapi.Token, timeout time.Duration) error {
	select {
	case <-token.Done():
		return maskAny(token.Error())
	case <-ctx.Done():
		return maskAny(ctx.Err())
	case <-time.After(timeout):
		return errors.Wrapf(TimeoutError, "after %s", timeout)
	}
}
