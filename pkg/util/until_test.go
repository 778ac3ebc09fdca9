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

package util

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- UntilCanceled(ctx, zerolog.Nop(), "test", func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 3 {
				cancel()
			}
			return errors.New("failed")
		})
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("UntilCanceled did not stop")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetry(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), zerolog.Nop(), "test", func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = Retry(ctx, zerolog.Nop(), "test", func(context.Context) error {
		return errors.New("never")
	})
	assert.EqualError(t, err, "never")
}

func TestNextDelay(t *testing.T) {
	assert.Equal(t, 15*time.Millisecond, nextDelay(10*time.Millisecond))
	assert.Equal(t, maxRetryDelay, nextDelay(4*time.Second))
}
