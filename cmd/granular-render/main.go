package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dariodo/Poli-Granulator/granular"
	"github.com/dariodo/Poli-Granulator/internal/audioio"
	"github.com/dariodo/Poli-Granulator/preset"
)

func main() {
	source := flag.String("source", "", "Source WAV file path (required)")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	irPath := flag.String("ir", "", "Body IR WAV path override (optional)")
	duration := flag.Float64("duration", 4.0, "Render duration in seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	blockSize := flag.Int("block-size", 128, "Render block size in frames")
	note := flag.Int("note", -1, "Hold this semitone offset on cursor A for the whole render (-1 disables)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	if *source == "" {
		fmt.Fprintln(os.Stderr, "Error: -source is required")
		os.Exit(1)
	}

	cfg := granular.DefaultConfig()
	cfg.SampleRate = *sampleRate

	eng, err := granular.NewEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error constructing engine: %v\n", err)
		os.Exit(1)
	}

	buf, err := audioio.LoadSourceBuffer(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading source %q: %v\n", *source, err)
		os.Exit(1)
	}

	cursors := [3]granular.CursorParams{
		granular.DefaultCursorParams(),
		granular.DefaultCursorParams(),
		granular.DefaultCursorParams(),
	}
	var irWavPath string
	if *presetPath != "" {
		loaded, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		cursors = loaded.Cursors
		irWavPath = loaded.IRWavPath
	}
	if *irPath != "" {
		irWavPath = *irPath
	}

	eng.Inbox().Push(granular.Message{Kind: granular.MsgSetBuffer, Buffer: buf})
	eng.Inbox().Push(granular.Message{Kind: granular.MsgSetLoudnessMap, LoudnessMap: granular.NewLoudnessMap(buf, 2048)})
	eng.Inbox().Push(granular.Message{Kind: granular.MsgSetParamsAll, ParamsAll: cursors})
	eng.Inbox().Push(granular.Message{Kind: granular.MsgSetPlaying, Playing: true})
	if *note >= 0 {
		eng.Inbox().Push(granular.Message{Kind: granular.MsgNoteOn, Cursor: 0, Semis: int16(*note)})
	}

	if irWavPath != "" {
		if err := eng.LoadBodyIR(irWavPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load body IR %q: %v\n", irWavPath, err)
		}
	}

	totalFrames := int(*duration * float64(*sampleRate))
	if totalFrames < 1 {
		totalFrames = 1
	}

	outL := make([]float32, 0, totalFrames)
	outR := make([]float32, 0, totalFrames)

	rendered := 0
	for rendered < totalFrames {
		n := *blockSize
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}
		l, r := eng.Process(n)
		outL = append(outL, l...)
		outR = append(outR, r...)
		rendered += n
	}

	if err := audioio.WriteStereoWAV(*output, outL, outR, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output %q: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d frames at %d Hz)\n", *output, totalFrames, *sampleRate)
}
