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

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/gpiodzero/pkg/bridge"
	"github.com/binkynet/gpiodzero/pkg/service"
)

func newTestAPI(t *testing.T) (http.Handler, *bridge.VirtualBridge) {
	api := bridge.NewVirtualBridge()
	api.Line(bridge.DefaultChip, 27).SetLevel(1)
	svc := service.New(api, zerolog.Nop())
	cfg := service.DefaultConfig()
	cfg.LEDs = []service.LEDConfig{{Name: "status", Pin: 17}}
	cfg.RGBLEDs = []service.RGBLEDConfig{{Name: "mood", Red: 5, Green: 6, Blue: 13}}
	cfg.PWMs = []service.PWMConfig{{Name: "fan", Pin: 18, Resolution: 10}}
	cfg.Buttons = []service.ButtonConfig{{Name: "doorbell", Pin: 27, Pull: "up"}}
	require.NoError(t, svc.Configure(cfg))
	t.Cleanup(func() { svc.Close() })
	return newRouter(svc, zerolog.Nop()), api
}

// do executes a request and decodes the JSON response into result.
func do(t *testing.T, h http.Handler, method, path, body string, result interface{}) int {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if result != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), result), rec.Body.String())
	}
	return rec.Code
}

func TestAPIHealth(t *testing.T) {
	h, _ := newTestAPI(t)
	var health healthResponse
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", &health))
	assert.Equal(t, "OK", health.Status)
}

func TestAPIMetrics(t *testing.T) {
	h, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gpiodzero_service_components")
}

func TestAPIComponents(t *testing.T) {
	h, _ := newTestAPI(t)
	var status service.Status
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/components", "", &status))
	require.Len(t, status.LEDs, 1)
	require.Len(t, status.RGBLEDs, 1)
	require.Len(t, status.PWMs, 1)
	require.Len(t, status.Buttons, 1)
	assert.Equal(t, "gpiochip0:17", status.LEDs[0].Line)
}

func TestAPILED(t *testing.T) {
	h, api := newTestAPI(t)
	var status service.LEDStatus
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/leds/status", `{"on":true}`, &status))
	assert.True(t, status.Lit)
	assert.Equal(t, 1, api.Line(bridge.DefaultChip, 17).Level())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/leds/status",
		`{"blink":{"on":"10ms","off":"10ms","count":1}}`, &status))
	assert.True(t, status.Blinking)
	assert.Eventually(t, func() bool {
		var st service.LEDStatus
		do(t, h, http.MethodGet, "/api/v1/leds/status", "", &st)
		return !st.Blinking && !st.Lit
	}, time.Second, 10*time.Millisecond)

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/leds/missing", "", &errResp))
	assert.Contains(t, errResp.Error, "missing")
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/leds/status", `{}`, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/leds/status", `{"on":`, &errResp))
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/leds/status",
		`{"blink":{"on":"soon"}}`, &errResp))
}

func TestAPIRGBLED(t *testing.T) {
	h, _ := newTestAPI(t)
	var status service.RGBLEDStatus
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/rgb-leds/mood", `{"red":1,"green":0.5}`, &status))
	assert.Equal(t, 1.0, status.Color.Red)
	assert.Equal(t, 0.5, status.Color.Green)
	assert.Equal(t, 0.0, status.Color.Blue)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/rgb-leds/mood", `{"off":true}`, &status))
	assert.True(t, status.Color.IsOff())

	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/rgb-leds/mood",
		`{"blink":{"count":1}}`, &errResp))
}

func TestAPIPWM(t *testing.T) {
	h, _ := newTestAPI(t)
	var status service.PWMStatus
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/pwms/fan",
		`{"frequency":100,"duty":512,"running":true}`, &status))
	assert.Equal(t, 100.0, status.Frequency)
	assert.Equal(t, 10, status.Resolution)
	assert.Equal(t, 512, status.Duty)
	assert.True(t, status.Running)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/pwms/fan", `{"running":false}`, &status))
	assert.False(t, status.Running)

	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/pwms/fan", `{"resolution":7}`, &errResp))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/v1/pwms/pump", `{"running":true}`, &errResp))
}

func TestAPIButton(t *testing.T) {
	h, api := newTestAPI(t)
	var status service.ButtonStatus
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/buttons/doorbell", "", &status))
	assert.False(t, status.Pressed)
	require.NotNil(t, status.Live)
	assert.False(t, *status.Live)

	api.Line(bridge.DefaultChip, 27).SetLevel(0)
	status = service.ButtonStatus{}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/buttons/doorbell?live=true", "", &status))
	require.NotNil(t, status.Live)
	assert.True(t, *status.Live)

	status = service.ButtonStatus{}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/buttons/doorbell?live=false", "", &status))
	assert.Nil(t, status.Live)

	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/buttons/doorbell?live=maybe", "", &errResp))
}
