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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/gpiodzero/pkg/logging"
	"github.com/binkynet/gpiodzero/pkg/mqtt"
	"github.com/binkynet/gpiodzero/pkg/server"
	"github.com/binkynet/gpiodzero/pkg/service"
	"github.com/binkynet/gpiodzero/pkg/ui"
)

var (
	cmdRun = &cobra.Command{
		Use:   "run",
		Short: "Run the daemon",
		Run:   runDaemon,
	}
	runArgs struct {
		configPath string
		host       string
		httpPort   int
		sshPort    int
	}
)

func init() {
	f := cmdRun.Flags()
	f.StringVarP(&runArgs.configPath, "config", "c", "", "Path of the configuration file (TOML)")
	f.StringVar(&runArgs.host, "host", "0.0.0.0", "Host address the servers will listen on")
	f.IntVar(&runArgs.httpPort, "http-port", service.DefaultHTTPPort, "Port the HTTP server will listen on")
	f.IntVar(&runArgs.sshPort, "ssh-port", service.DefaultSSHPort, "Port the SSH server will listen on (0 to disable)")
	cmdMain.AddCommand(cmdRun)
}

// loadRunConfig loads the configuration file (if any) and applies
// the command line flags that were set explicitly.
func loadRunConfig(cmd *cobra.Command) (service.Config, error) {
	cfg := service.DefaultConfig()
	if runArgs.configPath != "" {
		var err error
		if cfg, err = service.LoadConfig(runArgs.configPath); err != nil {
			return cfg, maskAny(err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = runArgs.host
	}
	if flags.Changed("http-port") {
		cfg.Server.HTTPPort = runArgs.httpPort
	}
	if flags.Changed("ssh-port") {
		cfg.Server.SSHPort = runArgs.sshPort
	}
	if flags.Changed("bridge") || cfg.Bridge == "" {
		cfg.Bridge = mainArgs.bridgeType
	}
	if flags.Changed("chip") {
		cfg.Chip = mainArgs.chip
	}
	if flags.Changed("consumer") {
		cfg.Consumer = mainArgs.consumer
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) {
	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mqttWriter := logging.NewMQTTWriter(ctx)
	log := newLogger(logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, mqttWriter))

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		Exitf("Failed to load configuration: %v\n", err)
	}
	br := newBridge(cfg.Bridge, log)
	defer br.Close()

	svc := service.New(br, log)
	if err := svc.Configure(cfg); err != nil {
		if service.IsInvalidConfig(err) {
			Exitf("Invalid configuration: %v\n", err)
		}
		log.Error().Err(err).Msg("Some components could not be created")
	}

	srv, err := server.New(server.Config{
		Host:        cfg.Server.Host,
		HTTPPort:    cfg.Server.HTTPPort,
		SSHPort:     cfg.Server.SSHPort,
		HostKeyPath: cfg.Server.HostKeyPath,
	}, log, ui.New(svc, log), svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	var mqttBridge *mqtt.Bridge
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewClient(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, log)
		if err != nil {
			Exitf("Failed to initialize MQTT: %v\n", err)
		}
		mqttBridge = mqtt.NewBridge(svc, client, cfg.MQTT.TopicPrefix, log)
		mqttWriter.SetDestination(mqtt.LogTopic(cfg.MQTT.TopicPrefix), client)
		mqttWriter.Enable(cfg.MQTT.Log)
	}

	listenSignals(log, cancel)

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if mqttBridge != nil {
		g.Go(func() error { return mqttBridge.Run(ctx) })
	}
	if runArgs.configPath != "" {
		w := service.NewWatcher(runArgs.configPath, 0, log, func(newCfg service.Config) {
			if newCfg.Server != cfg.Server || newCfg.MQTT != cfg.MQTT {
				log.Warn().Msg("Server and MQTT changes require a restart")
			}
			if err := svc.Configure(newCfg); err != nil {
				log.Error().Err(err).Msg("Failed to apply new configuration")
			}
		})
		g.Go(func() error { return w.Run(ctx) })
	}
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("Failed to notify systemd")
	} else if ok {
		log.Debug().Msg("Notified systemd")
	}
	err = g.Wait()
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		Exitf("Service run failed: %v\n", err)
	}
}
