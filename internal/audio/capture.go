// Package audio owns everything on the producer side of the tuner: the
// PortAudio subsystem, device enumeration, the shared rolling sample buffer,
// the capture stream feeding it, and optional WAV recording of the raw input.
//
// The capture callback runs on PortAudio's real-time thread. It downmixes,
// pushes into the SampleBuffer, and returns; it never blocks on the analysis
// side.
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"tuner/internal/log"
)

// Capture is an open input stream delivering samples into a SampleBuffer.
type Capture struct {
	buffer     *SampleBuffer
	stream     *portaudio.Stream
	device     Device
	channels   int
	sampleRate float64
	latency    time.Duration
	mono       []float32 // Scratch buffer for channel downmix

	// Recording state, managed atomically so the callback can check it
	// without locking.
	isRecording int32
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
}

// OpenCapture opens and starts an input stream on the given device. A
// sampleRate of 0 uses the device's default rate. The buffer's sample rate
// is updated to the rate actually used, so callers can size their analysis
// against it.
func OpenCapture(device Device, channels int, sampleRate float64, framesPerBuffer int, lowLatency bool, buffer *SampleBuffer) (*Capture, error) {
	if device.info == nil {
		return nil, fmt.Errorf("device %q has no PortAudio handle", device.Name)
	}
	if channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", channels)
	}
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	c := &Capture{
		buffer:     buffer,
		device:     device,
		channels:   channels,
		sampleRate: sampleRate,
		mono:       make([]float32, framesPerBuffer),
	}

	if lowLatency {
		c.latency = device.info.DefaultLowInputLatency
	} else {
		c.latency = device.info.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device.info,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only
			Device:   nil,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInput)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %q: %w", device.Name, err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		return nil, fmt.Errorf("failed to start input stream on %q: %w", device.Name, err)
	}

	buffer.SetSampleRate(sampleRate)
	log.Infof("Capture: opened %q (%d ch, %.0f Hz)", device.Name, channels, sampleRate)

	return c, nil
}

// processInput is the PortAudio callback. Multi-channel input is averaged
// down to mono before the buffer push.
func (c *Capture) processInput(in []float32) {
	samples := in
	if c.channels > 1 {
		frames := len(in) / c.channels
		if frames > len(c.mono) {
			frames = len(c.mono)
		}
		for i := 0; i < frames; i++ {
			sum := float32(0)
			for ch := 0; ch < c.channels; ch++ {
				sum += in[i*c.channels+ch]
			}
			c.mono[i] = sum / float32(c.channels)
		}
		samples = c.mono[:frames]
	}

	c.buffer.Push(samples)

	if atomic.LoadInt32(&c.isRecording) == 1 && c.wavEncoder != nil {
		c.writeRecording(samples)
	}
}

// Device returns the device this capture was opened on.
func (c *Capture) Device() Device {
	return c.device
}

// SampleRate returns the rate the stream was opened at.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Stop stops and closes the input stream. The SampleBuffer keeps its
// content; it is the stabilizer's job to discard state across a switch.
func (c *Capture) Stop() error {
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			return err
		}
		if err := c.stream.Close(); err != nil {
			return err
		}
		c.stream = nil
	}
	return nil
}

// Close stops recording if active, then tears down the stream.
func (c *Capture) Close() error {
	if atomic.LoadInt32(&c.isRecording) == 1 {
		if err := c.StopRecording(); err != nil {
			return err
		}
	}
	return c.Stop()
}
