// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spectro/cmd"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/source"
	"spectro/internal/transport"
	"spectro/internal/transport/udp"
	"spectro/internal/worker"
	"spectro/pkg/build"
)

// main drives one worker through the acquisition pipeline.
//
// 1. Startup:
//   - Resolve build metadata and parse configuration
//   - Initialize PortAudio and sweep stale recording files
//   - Construct the event sinks and the worker pool
//
// 2. Running:
//   - The worker streams spectral records into the sinks until the
//     source is exhausted, fails, or a termination signal arrives
//
// 3. Shutdown:
//   - Abort the worker cooperatively, wait for it to finish, close sinks
func main() {
	build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg == nil {
		// --help or --version already handled by the CLI.
		return
	}

	applog.SetLevelFromConfig(cfg.Debug, cfg.LogLevel)

	if err := source.Initialize(); err != nil {
		applog.Fatalf("portaudio init failed: %v", err)
	}
	defer source.Terminate()

	if cfg.Command == "list" {
		if err := source.ListDevices(); err != nil {
			applog.Fatalf("device listing failed: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	if removed, err := source.SweepStaleRecordings(cfg.Recording.Dir); err != nil {
		applog.Warnf("stale recording sweep failed: %v", err)
	} else if removed > 0 {
		applog.Infof("removed %d stale recording file(s)", removed)
	}
	if err := os.MkdirAll(cfg.Recording.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording dir: %w", err)
	}

	sink, closeSinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	var desc source.Descriptor
	if cfg.Source.File != "" {
		desc = source.FileDescriptor(cfg.Source.File, cfg.Source.Channel)
	} else {
		desc = source.DeviceDescriptor(cfg.Source.DeviceID)
	}
	applog.Infof("source: %s", desc)

	pool := worker.NewPool(cfg.Workers.MaxWorkers)
	w := worker.New(1, desc,
		cfg.Spectral.WindowSeconds, cfg.Spectral.Interval, cfg.Spectral.Alpha,
		sink,
		worker.Options{
			RecordingDir: cfg.Recording.Dir,
			RingCapacity: cfg.Source.RingCapacity,
		})
	if err := pool.Start(w); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	// SIGINT/SIGTERM abort the worker; a second signal is left at its
	// default disposition so a stuck shutdown can still be killed.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		applog.Infof("termination signal received, stopping")
		signal.Stop(sigc)
		w.Abort()
	}()

	pool.Wait()

	if reason := w.Reason(); reason != worker.ReasonOK {
		return fmt.Errorf("worker stopped: %s", reason)
	}
	return nil
}

// buildSinks assembles the configured event sinks behind one fanout. The
// log sink is always present.
func buildSinks(cfg *config.Config) (worker.Sink, func(), error) {
	sinks := []transport.Sink{transport.NewLogSink()}
	var publisher *udp.Publisher

	if cfg.Transport.WebSocketEnabled {
		sinks = append(sinks, transport.NewWebSocketSink(cfg.Transport.WebSocketPort, 0))
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, nil, err
		}
		publisher = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender)
		publisher.Start()
		sinks = append(sinks, udpSink{publisher, sender})
	}

	fanout := transport.NewFanout(sinks...)
	return fanout, func() {
		if err := fanout.Close(); err != nil {
			applog.Warnf("sink close: %v", err)
		}
	}, nil
}

// udpSink pairs the publisher with its sender so the fanout closes both.
type udpSink struct {
	*udp.Publisher
	sender *udp.Sender
}

func (u udpSink) Close() error {
	if err := u.Publisher.Close(); err != nil {
		return err
	}
	return u.sender.Close()
}
