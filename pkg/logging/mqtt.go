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

package logging

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/binkynet/gpiodzero/pkg/mqtt"
)

// MQTTWriter is a log writer that publishes log lines to MQTT.
type MQTTWriter interface {
	io.Writer
	// Enable or disable publishing.
	Enable(enable bool)
	// SetDestination sets the topic and client used to publish log lines.
	SetDestination(topic string, client mqtt.Client)
}

type mqttLogger struct {
	mutex  sync.Mutex
	queue  chan []byte
	topic  string
	client mqtt.Client
	enable bool
}

const (
	mqttQueueSize = 512
)

// NewMQTTWriter creates a writer that queues log lines and publishes
// them until the given context is canceled.
// When the queue is full, the oldest lines are dropped.
func NewMQTTWriter(ctx context.Context) MQTTWriter {
	l := &mqttLogger{
		queue: make(chan []byte, mqttQueueSize),
	}
	go l.run(ctx)
	return l
}

// Write queues a copy of the given log line.
func (l *mqttLogger) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	msg := make([]byte, len(p))
	copy(msg, p)
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case l.queue <- msg:
			return len(p), nil
		default:
			// Queue full; Take 1 out and try again
			select {
			case <-l.queue:
			default:
			}
		}
	}
	return len(p), nil
}

func (l *mqttLogger) Enable(enable bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.enable = enable
}

func (l *mqttLogger) SetDestination(topic string, client mqtt.Client) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.topic = topic
	l.client = client
}

type logMsg struct {
	Message string `json:"message"`
}

func (l *mqttLogger) run(ctx context.Context) {
	for {
		l.mutex.Lock()
		client := l.client
		topic := l.topic
		enabled := l.enable
		l.mutex.Unlock()

		if enabled && topic != "" && client != nil {
			select {
			case msg := <-l.queue:
				// Errors are ignored, logging them would loop
				client.Publish(ctx, topic, logMsg{Message: string(msg)}, mqtt.QosAtMostOnce, false)
			case <-time.After(time.Second):
				// Check destination again
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}
