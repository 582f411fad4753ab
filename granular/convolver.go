package granular

import (
	"fmt"
	"os"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
)

// BodyConvolver is an optional post-filter, pre-limiter stereo body/
// cabinet resonance stage (a source-signal supplement beyond what
// spec.md's core asks for: a recorded impulse response colors the
// master bus the way a physical speaker or room would). Disabled
// (pass-through) until an impulse response is loaded.
//
// Adapted from the teacher's SoundboardConvolver (piano/convolver.go):
// same partitioned-overlap-add engine and WAV-loading/resample path,
// generalized from mono-in/stereo-out (driving a stereo IR pair from a
// single excitation) to stereo-in/stereo-out, since the granular
// master bus is already stereo before this stage.
type BodyConvolver struct {
	sampleRate int
	partSize   int
	enabled    bool

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	leftScratch  []float32
	rightScratch []float32
	leftOut      []float32
	rightOut     []float32

	outScratchL []float32
	outScratchR []float32
}

func (c *BodyConvolver) ensureOutScratch(n int) {
	if len(c.outScratchL) >= n {
		return
	}
	c.outScratchL = make([]float32, n)
	c.outScratchR = make([]float32, n)
}

func NewBodyConvolver(sampleRate int) *BodyConvolver {
	return &BodyConvolver{sampleRate: sampleRate, partSize: 128}
}

// ProcessBlock convolves left/right with the loaded IR pair, or passes
// them through unchanged when no IR has been set.
func (c *BodyConvolver) ProcessBlock(left, right []float32) ([]float32, []float32) {
	if !c.enabled || c.leftOLA == nil || c.rightOLA == nil {
		return left, right
	}
	n := len(left)
	c.ensureOutScratch(n)
	outL := c.outScratchL[:n]
	outR := c.outScratchR[:n]

	processed := 0
	for processed < n {
		end := processed + c.partSize
		if end > n {
			end = n
		}
		blockLen := end - processed

		copy(c.leftScratch, left[processed:end])
		copy(c.rightScratch, right[processed:end])
		for i := blockLen; i < c.partSize; i++ {
			c.leftScratch[i] = 0
			c.rightScratch[i] = 0
		}

		errL := c.leftOLA.ProcessBlockTo(c.leftOut, c.leftScratch)
		errR := c.rightOLA.ProcessBlockTo(c.rightOut, c.rightScratch)
		if errL != nil || errR != nil {
			copy(outL[processed:end], left[processed:end])
			copy(outR[processed:end], right[processed:end])
		} else {
			copy(outL[processed:end], c.leftOut[:blockLen])
			copy(outR[processed:end], c.rightOut[:blockLen])
		}
		processed = end
	}
	return outL, outR
}

// SetIR configures the left/right impulse responses and enables the stage.
func (c *BodyConvolver) SetIR(leftIR, rightIR []float32) error {
	if len(leftIR) == 0 {
		leftIR = []float32{1.0}
	}
	if len(rightIR) == 0 {
		rightIR = []float32{1.0}
	}
	leftOLA, err := dspconv.NewStreamingOverlapAdd32(leftIR, c.partSize)
	if err != nil {
		return err
	}
	rightOLA, err := dspconv.NewStreamingOverlapAdd32(rightIR, c.partSize)
	if err != nil {
		return err
	}
	c.leftOLA = leftOLA
	c.rightOLA = rightOLA
	c.leftScratch = make([]float32, c.partSize)
	c.rightScratch = make([]float32, c.partSize)
	c.leftOut = make([]float32, c.partSize)
	c.rightOut = make([]float32, c.partSize)
	c.enabled = true
	return nil
}

// SetIRFromWAV loads a mono/stereo IR file, resampling to the engine's
// sample rate if needed.
func (c *BodyConvolver) SetIRFromWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("granular: invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return fmt.Errorf("granular: invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return fmt.Errorf("granular: invalid wav sample rate: %d", srcRate)
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return fmt.Errorf("granular: empty wav data: %s", path)
	}

	left := make([]float32, frames)
	right := make([]float32, frames)
	if numCh == 1 {
		for i := 0; i < frames; i++ {
			v := buf.Data[i]
			left[i], right[i] = v, v
		}
	} else {
		for i := 0; i < frames; i++ {
			left[i] = buf.Data[i*numCh]
			right[i] = buf.Data[i*numCh+1]
		}
	}

	left, err = c.resampleIfNeeded(left, srcRate)
	if err != nil {
		return err
	}
	right, err = c.resampleIfNeeded(right, srcRate)
	if err != nil {
		return err
	}
	return c.SetIR(left, right)
}

func (c *BodyConvolver) resampleIfNeeded(in []float32, inRate int) ([]float32, error) {
	if inRate == c.sampleRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(inRate),
		float64(c.sampleRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}

// Disable returns the stage to pass-through.
func (c *BodyConvolver) Disable() {
	c.enabled = false
}
