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
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/gpiodzero/pkg/devices"
	"github.com/binkynet/gpiodzero/pkg/service"
)

// Service is the part of the service used by the REST API.
type Service interface {
	Uptime() time.Duration
	Status() service.Status
	LEDStatus(name string) (service.LEDStatus, error)
	RGBLEDStatus(name string) (service.RGBLEDStatus, error)
	PWMStatus(name string) (service.PWMStatus, error)
	ButtonStatus(name string, live bool) (service.ButtonStatus, error)
	SetLED(name string, cmd service.LEDCommand) error
	SetRGBLED(name string, cmd service.RGBLEDCommand) error
	SetPWM(name string, cmd service.PWMCommand) error
}

type api struct {
	log     zerolog.Logger
	service Service
}

// newRouter creates the HTTP router serving the REST API,
// health, metrics & profiling endpoints.
func newRouter(svc Service, log zerolog.Logger) *echo.Echo {
	a := &api{log: log, service: svc}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.errorHandler

	e.GET("/health", a.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))

	v1 := e.Group("/api/v1")
	v1.GET("/components", a.components)
	v1.GET("/leds/:name", a.getLED)
	v1.PUT("/leds/:name", a.putLED)
	v1.GET("/rgb-leds/:name", a.getRGBLED)
	v1.PUT("/rgb-leds/:name", a.putRGBLED)
	v1.GET("/pwms/:name", a.getPWM)
	v1.PUT("/pwms/:name", a.putPWM)
	v1.GET("/buttons/:name", a.getButton)
	return e
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (a *api) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "OK",
		Uptime: a.service.Uptime().Round(time.Second).String(),
	})
}

func (a *api) components(c echo.Context) error {
	return c.JSON(http.StatusOK, a.service.Status())
}

func (a *api) getLED(c echo.Context) error {
	status, err := a.service.LEDStatus(c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (a *api) putLED(c echo.Context) error {
	var cmd service.LEDCommand
	if err := bind(c, &cmd); err != nil {
		return err
	}
	if err := a.service.SetLED(c.Param("name"), cmd); err != nil {
		return err
	}
	return a.getLED(c)
}

func (a *api) getRGBLED(c echo.Context) error {
	status, err := a.service.RGBLEDStatus(c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (a *api) putRGBLED(c echo.Context) error {
	var cmd service.RGBLEDCommand
	if err := bind(c, &cmd); err != nil {
		return err
	}
	if err := a.service.SetRGBLED(c.Param("name"), cmd); err != nil {
		return err
	}
	return a.getRGBLED(c)
}

func (a *api) getPWM(c echo.Context) error {
	status, err := a.service.PWMStatus(c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (a *api) putPWM(c echo.Context) error {
	var cmd service.PWMCommand
	if err := bind(c, &cmd); err != nil {
		return err
	}
	if err := a.service.SetPWM(c.Param("name"), cmd); err != nil {
		return err
	}
	return a.getPWM(c)
}

// getButton returns the stable state of a button.
// Unless ?live=false is given, the line is sampled as well.
func (a *api) getButton(c echo.Context) error {
	live := true
	if v := c.QueryParam("live"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid live parameter")
		}
		live = parsed
	}
	status, err := a.service.ButtonStatus(c.Param("name"), live)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// bind decodes the request body into given command.
func bind(c echo.Context, cmd interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, cmd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler maps errors onto HTTP status codes.
func (a *api) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusCode(err)
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	if code >= http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	if err := c.JSON(code, errorResponse{Error: msg}); err != nil {
		a.log.Warn().Err(err).Msg("Failed to send error response")
	}
}

// statusCode returns the HTTP status code for given error.
func statusCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case service.IsInvalidCommand(err), devices.IsInvalidArgument(err):
		return http.StatusBadRequest
	case devices.IsStateError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
