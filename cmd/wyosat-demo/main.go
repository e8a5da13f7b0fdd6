// Wyosat-demo is a terminal-driven exercise harness for the satellite
// core, standing in for real audio hardware with the fake microphone,
// sound, and wake devices. It mirrors the reference implementation's own
// demo harness: a background capture loop plus a command line reading
// single-key commands.
//
//	l  play the configured test-audio file once
//	w  fire a wake-word detection
//	q  stop the satellite and exit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadzzz/wyosat/internal/config"
	"github.com/nadzzz/wyosat/internal/device/fake"
	"github.com/nadzzz/wyosat/internal/satellite"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	audioPath := flag.String("audio", "", "raw PCM file played back on the 'l' command")
	useWake := flag.Bool("wake", true, "attach the mock wake component (wake-stream mode)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Logging)
	slog.Info("wyosat-demo starting")

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

	mic := fake.NewMicrophone(sat, cfg.Device.Rate, 2, 1, *audioPath)
	if err := mic.Init(ctx); err != nil {
		slog.Error("failed to initialize mock microphone", "error", err)
		os.Exit(1)
	}
	defer mic.Destroy(ctx)
	sat.SetMicrophone(mic)

	snd := fake.NewSound(cfg.Device.FakeDir)
	if err := snd.Init(ctx); err != nil {
		slog.Error("failed to initialize mock sound device", "error", err)
		os.Exit(1)
	}
	defer snd.Destroy(ctx)
	sat.SetSound(snd)

	if *useWake {
		wake := fake.NewWake("test")
		sat.SetWake(wake)
	}

	go runTerminal(ctx, sat, mic)

	slog.Info("wyosat-demo ready", "port", cfg.Satellite.Port, "dir", cfg.Device.FakeDir)
	if err := sat.Run(ctx); err != nil {
		slog.Error("satellite stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("wyosat-demo stopped")
}

// runTerminal reads single-key commands from stdin until ctx is cancelled
// or the 'q' command requests shutdown.
func runTerminal(ctx context.Context, sat *satellite.Satellite, mic *fake.Microphone) {
	fmt.Println("commands: l=play test audio, w=wake detection, q=quit")
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch line[0] {
		case 'l':
			mic.PlayTestAudio()
		case 'w':
			sat.WakeDetection()
		case 'q':
			sat.Stop()
			return
		}
	}
}
