package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dariodo/Poli-Granulator/granular"
)

func writeTempPreset(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesPartialOverrides(t *testing.T) {
	path := writeTempPreset(t, `{
		"ir_wav_path": "ir.wav",
		"cursors": {
			"a": {"density": 30, "pan": -0.5},
			"c": {"gain": 0}
		}
	}`)

	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}

	if loaded.Cursors[0].Density != 30 {
		t.Errorf("cursor a density = %v, want 30", loaded.Cursors[0].Density)
	}
	if loaded.Cursors[0].Pan != -0.5 {
		t.Errorf("cursor a pan = %v, want -0.5", loaded.Cursors[0].Pan)
	}
	if loaded.Cursors[0].Attack != granular.DefaultCursorParams().Attack {
		t.Errorf("cursor a attack should keep default when unset")
	}
	if loaded.Cursors[2].Gain != 0 {
		t.Errorf("cursor c gain = %v, want 0", loaded.Cursors[2].Gain)
	}
	want := filepath.Join(filepath.Dir(path), "ir.wav")
	if loaded.IRWavPath != want {
		t.Errorf("ir_wav_path resolved to %q, want %q", loaded.IRWavPath, want)
	}
}

func TestLoadJSONRejectsInvalidCursorKey(t *testing.T) {
	path := writeTempPreset(t, `{"cursors": {"d": {"gain": 1}}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for invalid cursor key")
	}
}

func TestLoadJSONRejectsOutOfRangePan(t *testing.T) {
	path := writeTempPreset(t, `{"cursors": {"b": {"pan": 2.0}}}`)
	if _, err := LoadJSON(path); err == nil {
		t.Fatalf("expected error for out-of-range pan")
	}
}
