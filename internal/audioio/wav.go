// Package audioio reads and writes the stereo WAV files the CLI driver
// uses as a source buffer and a rendered capture, and loads them into
// the shapes the granular package expects.
package audioio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/dariodo/Poli-Granulator/granular"
)

// LoadSourceBuffer decodes a WAV file into a *granular.SourceBuffer,
// keeping 1 or 2 channels separate (no downmix, unlike the teacher's
// mono fitting pipeline, since the engine plays stereo source material
// through independently-panned cursors).
func LoadSourceBuffer(path string) (*granular.SourceBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audioio: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("audioio: invalid wav buffer: %s", path)
	}

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	left := make([]float32, frames)
	var right []float32

	if ch == 1 {
		for i := 0; i < frames; i++ {
			left[i] = buf.Data[i]
		}
	} else {
		right = make([]float32, frames)
		for i := 0; i < frames; i++ {
			left[i] = buf.Data[i*ch]
			right[i] = buf.Data[i*ch+1]
		}
		ch = 2
	}

	return &granular.SourceBuffer{
		Channels:   ch,
		SampleRate: buf.Format.SampleRate,
		Left:       left,
		Right:      right,
	}, nil
}

// WriteStereoWAV writes non-interleaved left/right float32 slices as a
// 16-bit stereo WAV file, creating parent directories as needed.
func WriteStereoWAV(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("audioio: left/right length mismatch")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	defer enc.Close()

	data := make([]float32, len(left)*2)
	for i := range left {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}
