package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dariodo/Poli-Granulator/granular"
)

// File is the JSON schema for granular engine presets: an optional body
// impulse-response path plus up to three named cursor overrides.
type File struct {
	IRWavPath string                 `json:"ir_wav_path"`
	Cursors   map[string]CursorEntry `json:"cursors"`
}

// CursorEntry is a partial override of one cursor's parameters. Every
// field is optional; unset fields keep whatever the destination already
// had (spec §9 "parameter object with optional fields becomes a fixed
// record with validated numeric fields").
type CursorEntry struct {
	Attack    *float32 `json:"attack"`
	Release   *float32 `json:"release"`
	GrainSize *float32 `json:"grain_size"`
	Density   *float32 `json:"density"`
	Spread    *float32 `json:"spread"`
	Pan       *float32 `json:"pan"`
	Pitch     *float32 `json:"pitch"`
	Cutoff    *float32 `json:"cutoff"`
	Q         *float32 `json:"q"`
	Drive     *float32 `json:"drive"`
	Slope     *float32 `json:"slope"`
	LFOFreq   *float32 `json:"lfo_freq"`
	LFODepth  *float32 `json:"lfo_depth"`
	ScanSpeed *float32 `json:"scan_speed"`
	Gain      *float32 `json:"gain"`
}

var cursorIndex = map[string]int{"a": 0, "b": 1, "c": 2, "0": 0, "1": 1, "2": 2}

// Loaded is the result of loading a preset: resolved engine-wide
// options plus one CursorParams per cursor (A/B/C), seeded from
// granular.DefaultCursorParams and overridden by whatever the file set.
type Loaded struct {
	IRWavPath string
	Cursors   [3]granular.CursorParams
}

// LoadJSON reads a preset file and applies it on top of the defaults.
func LoadJSON(path string) (*Loaded, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	out := &Loaded{}
	for i := range out.Cursors {
		out.Cursors[i] = granular.DefaultCursorParams()
	}
	if err := ApplyFile(out, &f); err != nil {
		return nil, err
	}

	if out.IRWavPath != "" && !filepath.IsAbs(out.IRWavPath) {
		base := filepath.Dir(path)
		out.IRWavPath = filepath.Clean(filepath.Join(base, out.IRWavPath))
	}
	return out, nil
}

// ApplyFile applies a parsed preset file onto an existing Loaded value.
func ApplyFile(dst *Loaded, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	if f.IRWavPath != "" {
		dst.IRWavPath = strings.TrimSpace(f.IRWavPath)
	}

	for key, entry := range f.Cursors {
		idx, ok := cursorIndex[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return fmt.Errorf("invalid cursor key %q (expected a, b or c)", key)
		}
		if err := applyCursorEntry(&dst.Cursors[idx], entry, key); err != nil {
			return err
		}
	}
	return nil
}

func applyCursorEntry(dst *granular.CursorParams, e CursorEntry, key string) error {
	if e.Attack != nil {
		if *e.Attack < 0 {
			return fmt.Errorf("cursor %q: attack must be >= 0", key)
		}
		dst.Attack = *e.Attack
	}
	if e.Release != nil {
		if *e.Release < 0 {
			return fmt.Errorf("cursor %q: release must be >= 0", key)
		}
		dst.Release = *e.Release
	}
	if e.GrainSize != nil {
		if *e.GrainSize <= 0 {
			return fmt.Errorf("cursor %q: grain_size must be > 0", key)
		}
		dst.GrainSize = *e.GrainSize
	}
	if e.Density != nil {
		if *e.Density <= 0 {
			return fmt.Errorf("cursor %q: density must be > 0", key)
		}
		dst.Density = *e.Density
	}
	if e.Spread != nil {
		if *e.Spread < 0 {
			return fmt.Errorf("cursor %q: spread must be >= 0", key)
		}
		dst.Spread = *e.Spread
	}
	if e.Pan != nil {
		if *e.Pan < -1 || *e.Pan > 1 {
			return fmt.Errorf("cursor %q: pan must be in [-1,1]", key)
		}
		dst.Pan = *e.Pan
	}
	if e.Pitch != nil {
		if *e.Pitch <= 0 {
			return fmt.Errorf("cursor %q: pitch must be > 0", key)
		}
		dst.Pitch = *e.Pitch
	}
	if e.Cutoff != nil {
		dst.Cutoff = *e.Cutoff
	}
	if e.Q != nil {
		if *e.Q < 0 || *e.Q > 1 {
			return fmt.Errorf("cursor %q: q must be in [0,1]", key)
		}
		dst.Q = *e.Q
	}
	if e.Drive != nil {
		if *e.Drive < 0 || *e.Drive > 1 {
			return fmt.Errorf("cursor %q: drive must be in [0,1]", key)
		}
		dst.Drive = *e.Drive
	}
	if e.Slope != nil {
		if *e.Slope != 12 && *e.Slope != 24 {
			return fmt.Errorf("cursor %q: slope must be 12 or 24", key)
		}
		dst.Slope = *e.Slope
	}
	if e.LFOFreq != nil {
		if *e.LFOFreq < 0 {
			return fmt.Errorf("cursor %q: lfo_freq must be >= 0", key)
		}
		dst.LFOFreq = *e.LFOFreq
	}
	if e.LFODepth != nil {
		if *e.LFODepth < 0 || *e.LFODepth > 1 {
			return fmt.Errorf("cursor %q: lfo_depth must be in [0,1]", key)
		}
		dst.LFODepth = *e.LFODepth
	}
	if e.ScanSpeed != nil {
		dst.ScanSpeed = *e.ScanSpeed
	}
	if e.Gain != nil {
		if *e.Gain < 0 {
			return fmt.Errorf("cursor %q: gain must be >= 0", key)
		}
		dst.Gain = *e.Gain
	}
	return nil
}
