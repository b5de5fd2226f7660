package main

import (
	"fmt"
	"runtime"

	"tuner/cmd"
	"tuner/internal/audio"
	"tuner/internal/log"
	"tuner/internal/tui"
	"tuner/internal/tuner"
)

// main is the entry point for the tuner. The program flow has three phases:
//
// 1. Startup (cold path):
//   - Parse configuration (file, environment, flags)
//   - Configure logging and the runtime
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Running (hot path):
//   - Build the analysis engine and open the capture stream
//   - Start recording if enabled
//   - Hand control to the terminal UI until the user quits
//
// 3. Shutdown (cold path):
//   - Finalize an active recording
//   - Tear down the engine, capture stream, and broadcast server
func main() {
	config, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if level, ok := log.ParseLevel(config.LogLevel); ok {
		log.SetLevel(level)
	}
	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	// Limit OS threads: one for the time-critical capture callback, one for
	// analysis and the UI.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	if config.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if !config.TUIMode {
		return
	}

	engine, err := tuner.NewEngine(config)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("%v", err)
	}

	if config.Record {
		if err := engine.StartRecording(config.OutputFile); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if err := tui.Run(engine); err != nil {
		engine.Close()
		log.Fatalf("%v", err)
	}

	if engine.IsRecording() {
		if err := engine.StopRecording(); err != nil {
			log.Errorf("Error stopping recording: %v", err)
		} else {
			fmt.Printf("Recording saved to: %s\n", config.OutputFile)
		}
	}

	if err := engine.Close(); err != nil {
		log.Errorf("Error closing engine: %v", err)
	}
}
