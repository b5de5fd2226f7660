// Package tuner wires capture, analysis, and publishing into one engine
// driven by the UI's tick loop.
package tuner

import (
	"fmt"

	"tuner/internal/audio"
	"tuner/internal/config"
	"tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/internal/transport"
)

// Reading is the wire form of a stabilized note, broadcast to websocket
// clients.
type Reading struct {
	Note      string  `json:"note"`
	Frequency float64 `json:"frequency"`
	Cents     float64 `json:"cents"`
}

// Engine owns the full pipeline: a capture stream feeding a SampleBuffer,
// the spectral estimator, the stabilizer, and an optional broadcast
// transport. Step is meant to be called from a single goroutine, typically
// the UI tick.
type Engine struct {
	cfg        *config.Config
	buffer     *audio.SampleBuffer
	estimator  *pitch.Estimator
	stabilizer *pitch.Stabilizer
	capture    *audio.Capture
	transport  transport.Transport
	windowFn   func([]float64) []float64
}

// NewEngine builds the analysis pipeline from configuration. No audio device
// is touched until Start.
func NewEngine(cfg *config.Config) (*Engine, error) {
	windowFn, err := pitch.ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, err
	}

	estimator, err := pitch.NewEstimator(pitch.DefaultWindowSize, cfg.SampleRate, windowFn)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg,
		// Buffer capacity must equal the analysis window: Detect reads the
		// leading window of a snapshot, so a larger buffer would analyze
		// stale samples.
		buffer:     audio.NewSampleBuffer(pitch.DefaultWindowSize, cfg.SampleRate),
		estimator:  estimator,
		stabilizer: pitch.NewStabilizer(),
		windowFn:   windowFn,
	}

	if cfg.ServeAddr != "" {
		ws, err := transport.NewWebSocket(cfg.ServeAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start reading broadcast on %s: %w", cfg.ServeAddr, err)
		}
		e.transport = ws
	}

	return e, nil
}

// Start opens the configured input device and begins capturing into the
// buffer.
func (e *Engine) Start() error {
	dev, err := audio.InputDevice(e.cfg.DeviceID)
	if err != nil {
		return err
	}
	return e.openCapture(dev, e.cfg.SampleRate)
}

func (e *Engine) openCapture(dev audio.Device, sampleRate float64) error {
	capture, err := audio.OpenCapture(dev, e.cfg.Channels, sampleRate,
		e.cfg.FramesPerBuffer, e.cfg.LowLatency, e.buffer)
	if err != nil {
		return err
	}
	e.capture = capture

	// The stream may have come up at the device's own rate; the estimator's
	// bin→frequency mapping must match it.
	if rate := capture.SampleRate(); rate != e.estimator.SampleRate() {
		estimator, err := pitch.NewEstimator(pitch.DefaultWindowSize, rate, e.windowFn)
		if err != nil {
			capture.Close()
			e.capture = nil
			return err
		}
		e.estimator = estimator
	}
	return nil
}

// Step runs one analysis cycle. If a fresh window of samples is available it
// is analyzed and fed to the stabilizer; a cycle that loses the race with the
// capture callback is simply skipped. Returns the current stabilized note.
func (e *Engine) Step() (pitch.Note, bool) {
	if samples, ok := e.buffer.TryTake(); ok {
		est, found := e.estimator.Detect(samples)
		e.stabilizer.Observe(est, found)
		e.publish()
	}
	return e.stabilizer.Current()
}

func (e *Engine) publish() {
	if e.transport == nil {
		return
	}
	note, ok := e.stabilizer.Current()
	if !ok {
		return
	}
	if err := e.transport.Send(Reading{
		Note:      note.String(),
		Frequency: note.Frequency,
		Cents:     note.Cents,
	}); err != nil {
		log.Warnf("Engine: broadcast failed: %v", err)
	}
}

// Current returns the stabilized note without running an analysis cycle.
func (e *Engine) Current() (pitch.Note, bool) {
	return e.stabilizer.Current()
}

// Devices lists the host's input-capable devices.
func (e *Engine) Devices() ([]audio.Device, error) {
	devices, err := audio.HostDevices()
	if err != nil {
		return nil, err
	}
	inputs := devices[:0]
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// DeviceName returns the name of the device currently being captured.
func (e *Engine) DeviceName() string {
	if e.capture == nil {
		return ""
	}
	return e.capture.Device().Name
}

// SwitchDevice closes the current stream and reopens on dev at its default
// rate. All stabilizer state is discarded; readings from the old device must
// not smooth into the new one. An active recording is stopped.
func (e *Engine) SwitchDevice(dev audio.Device) error {
	if e.capture != nil {
		if err := e.capture.Close(); err != nil {
			return err
		}
		e.capture = nil
	}
	if err := e.openCapture(dev, 0); err != nil {
		return err
	}
	e.stabilizer.Reset()
	log.Infof("Engine: switched to device %q", dev.Name)
	return nil
}

// StartRecording begins writing the raw capture feed to filename.
func (e *Engine) StartRecording(filename string) error {
	if e.capture == nil {
		return fmt.Errorf("no capture stream open")
	}
	return e.capture.StartRecording(filename)
}

// IsRecording reports whether the capture feed is being written to disk.
func (e *Engine) IsRecording() bool {
	return e.capture != nil && e.capture.IsRecording()
}

// StopRecording finalizes an active recording. Safe to call when idle.
func (e *Engine) StopRecording() error {
	if e.capture == nil {
		return nil
	}
	return e.capture.StopRecording()
}

// Close tears down the capture stream and the broadcast server.
func (e *Engine) Close() error {
	var first error
	if e.capture != nil {
		first = e.capture.Close()
		e.capture = nil
	}
	if e.transport != nil {
		if err := e.transport.Close(); err != nil && first == nil {
			first = err
		}
		e.transport = nil
	}
	return first
}
