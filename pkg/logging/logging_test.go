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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/mqtt"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a, failingWriter{}, &b)
	n, err := w.Write([]byte("hello"))
	assert.Equal(t, 5, n)
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())
}

type recordingClient struct {
	mutex    sync.Mutex
	topics   []string
	messages []string
}

func (c *recordingClient) Connect(ctx context.Context) error { return nil }
func (c *recordingClient) Subscribe(ctx context.Context, topic string, qos mqtt.QOS, cb mqtt.MessageHandler) error {
	return nil
}
func (c *recordingClient) Close() error { return nil }
func (c *recordingClient) Publish(ctx context.Context, topic string, payload interface{}, qos mqtt.QOS, retained bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.topics = append(c.topics, topic)
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *recordingClient) count() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.messages)
}

func TestMQTTWriter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewMQTTWriter(ctx)
	buf := []byte("first line")
	_, err := w.Write(buf)
	require.NoError(t, err)
	// Writers may reuse their buffer
	copy(buf, "xxxxx")

	client := &recordingClient{}
	w.SetDestination("gpiodzero/logs", client)
	w.Enable(true)
	assert.Eventually(t, func() bool { return client.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	client.mutex.Lock()
	assert.Equal(t, "gpiodzero/logs", client.topics[0])
	assert.JSONEq(t, `{"message":"first line"}`, client.messages[0])
	client.mutex.Unlock()
}

func TestMQTTWriterDropsOldest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewMQTTWriter(ctx).(*mqttLogger)
	for i := 0; i < mqttQueueSize+10; i++ {
		n, err := w.Write([]byte{byte(i)})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, mqttQueueSize, len(w.queue))
	first := <-w.queue
	assert.Equal(t, byte(10), first[0])
}
