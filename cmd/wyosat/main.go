// Wyosat is a Wyoming-protocol voice-satellite daemon: it bridges local
// audio hardware (or a mock/demo stand-in) and a remote voice-assistant
// server over a single TCP connection.
//
// Usage:
//
//	wyosat [flags]
//	wyosat --config /path/to/wyosat.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadzzz/wyosat/internal/admin/grpc"
	"github.com/nadzzz/wyosat/internal/config"
	"github.com/nadzzz/wyosat/internal/debughttp"
	"github.com/nadzzz/wyosat/internal/device/fake"
	"github.com/nadzzz/wyosat/internal/device/portaudio"
	"github.com/nadzzz/wyosat/internal/device/wake/silero"
	"github.com/nadzzz/wyosat/internal/notify/mqtt"
	"github.com/nadzzz/wyosat/internal/satellite"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/wyosat.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wyosat %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("wyosat starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sat := satellite.New(satellite.Config{
		Port: cfg.Satellite.Port,
		Info: satellite.SatelliteInfo{
			Name:        cfg.Satellite.Name,
			Description: cfg.Satellite.Description,
			Version:     cfg.Satellite.Version,
		},
	}, slog.Default())

	var wakeFeeder interface{ Feed([]byte) }

	if cfg.Wake.Backend == "silero" {
		adapter := silero.New(sat, cfg.Wake.Silero.ModelPath, cfg.Wake.Silero.LibraryPath,
			cfg.Wake.Silero.Threshold, cfg.Wake.Silero.PhraseName)
		if err := adapter.Init(ctx); err != nil {
			slog.Error("failed to initialize wake engine", "backend", cfg.Wake.Backend, "error", err)
			os.Exit(1)
		}
		defer adapter.Destroy(ctx)
		sat.SetWake(adapter)
		wakeFeeder = adapter
		slog.Info("wake engine attached", "backend", "silero", "phrase", adapter.Name())
	}

	// MIC_DATA is single-recipient at the fabric (§ component fabric,
	// "never broadcast"): the active mode is the only consumer reachable
	// through Satellite.MicWriteData. A wake engine that needs the raw
	// stream to run its own detection is not on that path, so the capture
	// sink here fans a copy out to it directly.
	sink := &fanoutSink{sat: sat, wake: wakeFeeder}

	switch cfg.Device.Backend {
	case "portaudio":
		mic := portaudio.NewMicrophone(sink, cfg.Device.Rate, cfg.Device.InputDevice)
		if err := mic.Init(ctx); err != nil {
			slog.Error("failed to initialize microphone", "backend", cfg.Device.Backend, "error", err)
			os.Exit(1)
		}
		defer mic.Destroy(ctx)
		sat.SetMicrophone(mic)

		snd := portaudio.NewSound(cfg.Device.OutputDevice)
		if err := snd.Init(ctx); err != nil {
			slog.Error("failed to initialize sound device", "backend", cfg.Device.Backend, "error", err)
			os.Exit(1)
		}
		defer snd.Destroy(ctx)
		sat.SetSound(snd)
		slog.Info("audio devices attached", "backend", "portaudio")

	case "fake":
		mic := fake.NewMicrophone(sink, cfg.Device.Rate, 2, 1, "")
		if err := mic.Init(ctx); err != nil {
			slog.Error("failed to initialize fake microphone", "error", err)
			os.Exit(1)
		}
		defer mic.Destroy(ctx)
		sat.SetMicrophone(mic)

		snd := fake.NewSound(cfg.Device.FakeDir)
		if err := snd.Init(ctx); err != nil {
			slog.Error("failed to initialize fake sound device", "error", err)
			os.Exit(1)
		}
		defer snd.Destroy(ctx)
		sat.SetSound(snd)
		slog.Info("audio devices attached", "backend", "fake", "dir", cfg.Device.FakeDir)

	case "none":
		slog.Info("running headless: no microphone or sound device attached")

	default:
		slog.Error("unknown device backend", "backend", cfg.Device.Backend)
		os.Exit(1)
	}

	if cfg.Notify.Enabled {
		notifier, err := mqtt.New(cfg.Notify.Broker, cfg.Notify.ClientID, cfg.Notify.Topic)
		if err != nil {
			slog.Error("failed to connect mqtt notifier", "broker", cfg.Notify.Broker, "error", err)
			os.Exit(1)
		}
		defer notifier.Close()
		sat.SetNotifier(notifier)
		slog.Info("mqtt notifier attached", "broker", cfg.Notify.Broker, "topic", cfg.Notify.Topic)
	}

	debugSrv := debughttp.New(cfg.Debug.Port, nil)
	go func() {
		if err := debugSrv.ListenAndServe(ctx); err != nil {
			slog.Error("debug http server failed", "error", err)
		}
	}()

	if cfg.Admin.Enabled {
		adminSrv := grpc.New(cfg.Admin.Port, sat)
		go func() {
			if err := adminSrv.ListenAndServe(ctx); err != nil {
				slog.Error("admin grpc server failed", "error", err)
			}
		}()
	}

	debugSrv.SetReady(true)
	slog.Info("wyosat ready", "port", cfg.Satellite.Port, "debug_port", cfg.Debug.Port)

	if err := sat.Run(ctx); err != nil {
		slog.Error("satellite stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("wyosat stopped")
}

// fanoutSink forwards captured microphone buffers to the satellite core
// and, when a wake engine is attached, to its own feature-extraction feed.
type fanoutSink struct {
	sat  *satellite.Satellite
	wake interface{ Feed([]byte) }
}

func (s *fanoutSink) MicWriteData(buf []byte) {
	s.sat.MicWriteData(buf)
	if s.wake != nil {
		s.wake.Feed(buf)
	}
}
