package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tuner/internal/log"
)

const recordingBitDepth = 16

// StartRecording begins writing the mono capture feed to a 16-bit WAV file.
func (c *Capture) StartRecording(filename string) error {
	if atomic.LoadInt32(&c.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	c.outputFile = file

	c.wavEncoder = wav.NewEncoder(file, int(c.sampleRate), recordingBitDepth, 1, 1)
	c.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  int(c.sampleRate),
		},
		Data: make([]int, len(c.mono)),
	}

	atomic.StoreInt32(&c.isRecording, 1)
	log.Infof("Capture: recording to %s", filename)

	return nil
}

// IsRecording reports whether a recording is in progress.
func (c *Capture) IsRecording() bool {
	return atomic.LoadInt32(&c.isRecording) == 1
}

// StopRecording finalizes the WAV file. Safe to call when not recording.
func (c *Capture) StopRecording() error {
	if atomic.LoadInt32(&c.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&c.isRecording, 0)

	if c.wavEncoder != nil {
		if err := c.wavEncoder.Close(); err != nil {
			return err
		}
		c.wavEncoder = nil
	}

	if c.outputFile != nil {
		if err := c.outputFile.Close(); err != nil {
			return err
		}
		c.outputFile = nil
	}

	return nil
}

// writeRecording converts one mono batch to PCM and appends it to the open
// encoder. Runs inside the capture callback.
func (c *Capture) writeRecording(samples []float32) {
	data := c.sampleBuf.Data[:cap(c.sampleBuf.Data)]
	if len(samples) > len(data) {
		samples = samples[:len(data)]
	}
	for i, s := range samples {
		data[i] = pcm16(s)
	}
	c.sampleBuf.Data = data[:len(samples)]

	if err := c.wavEncoder.Write(c.sampleBuf); err != nil {
		log.Errorf("Capture: error writing to WAV file: %v", err)
	}
}

// pcm16 converts a normalized sample to a clamped 16-bit PCM value.
func pcm16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
