package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/geocard/game/engine"
)

func validRules() *engine.Rules {
	return &engine.Rules{
		Name:                "Test Preset",
		Description:         "Test rules",
		MaxRounds:           3,
		ActionWindowSeconds: 5,
		GuessGraceSeconds:   1,
	}
}

func writePreset(t *testing.T, dir, name string, config any) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal preset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write preset file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		classic := validRules()
		classic.Name = "Classic"
		writePreset(t, dir, "classic", classic)

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if got := m.Default().Name; got != "Classic" {
			t.Errorf("Expected classic as default, got %q", got)
		}
	})

	t.Run("missing directory uses built-in rules", func(t *testing.T) {
		m, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if got := m.Default(); got.Name != "default" || got.MaxRounds != engine.DefaultMaxRounds {
			t.Errorf("Expected built-in rules, got %+v", got)
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		os.WriteFile(file, []byte("x"), 0644)
		if _, err := NewManager(file); err == nil {
			t.Error("Expected error for a file path")
		}
	})
}

func TestManager_LoadPreset(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "quick", validRules())
	invalid := validRules()
	invalid.MaxRounds = 0
	writePreset(t, dir, "broken", invalid)
	os.WriteFile(filepath.Join(dir, "garbled.json"), []byte("{not json"), 0644)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	t.Run("load existing preset", func(t *testing.T) {
		rules, err := m.LoadPreset("quick")
		if err != nil {
			t.Fatalf("LoadPreset failed: %v", err)
		}
		if rules.MaxRounds != 3 {
			t.Errorf("Expected 3 rounds, got %d", rules.MaxRounds)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		if _, err := m.LoadPreset("quick.json"); err != nil {
			t.Fatalf("LoadPreset failed: %v", err)
		}
	})

	t.Run("callers cannot change cached rules", func(t *testing.T) {
		first, _ := m.LoadPreset("quick")
		first.MaxRounds = 99
		second, _ := m.LoadPreset("quick")
		if second.MaxRounds != 3 {
			t.Errorf("Cached preset was modified: %d rounds", second.MaxRounds)
		}
	})

	t.Run("default always resolves", func(t *testing.T) {
		rules, err := m.LoadPreset("default")
		if err != nil {
			t.Fatalf("LoadPreset failed: %v", err)
		}
		if rules.Name != "default" {
			t.Errorf("Expected built-in rules, got %q", rules.Name)
		}
	})

	errorCases := []struct {
		name string
		id   string
		want error
	}{
		{"non-existent preset", "missing", ErrPresetNotFound},
		{"path traversal", "../quick", ErrPresetNotFound},
		{"invalid preset", "broken", ErrInvalidPreset},
		{"malformed JSON", "garbled", ErrInvalidPreset},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.LoadPreset(tc.id)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestManager_ListPresets(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "quick", validRules())
	marathon := validRules()
	marathon.Name = "Marathon"
	marathon.MaxRounds = 10
	writePreset(t, dir, "marathon", marathon)
	bad := validRules()
	bad.Name = ""
	writePreset(t, dir, "bad", bad)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	presets, err := m.ListPresets()
	if err != nil {
		t.Fatalf("ListPresets failed: %v", err)
	}

	var ids []string
	for _, p := range presets {
		ids = append(ids, p.PresetID)
	}
	want := []string{"default", "marathon", "quick"}
	if len(ids) != len(want) {
		t.Fatalf("Expected presets %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected presets %v, got %v", want, ids)
			break
		}
	}
	if presets[1].MaxRounds != 10 || presets[1].Filename != "marathon.json" {
		t.Errorf("Unexpected marathon info: %+v", presets[1])
	}
}

func TestManager_ReloadAndSetDefault(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.LoadPreset("custom"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("Expected ErrPresetNotFound, got %v", err)
	}

	writePreset(t, dir, "custom", validRules())
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	rules, err := m.LoadPreset("custom")
	if err != nil || rules.Name != "Test Preset" {
		t.Errorf("Expected new preset after reload, got %+v, %v", rules, err)
	}

	if err := m.SetDefault("custom"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if m.Default().Name != "Test Preset" {
		t.Errorf("SetDefault did not take effect")
	}
	if err := m.SetDefault("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound, got %v", err)
	}

	classic := validRules()
	classic.Name = "Classic"
	writePreset(t, dir, DefaultPresetID, classic)
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if m.Default().Name != "Classic" {
		t.Errorf("Expected reload to restore the classic default, got %q", m.Default().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "quick", validRules())
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := m.LoadPreset("quick"); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := m.ListPresets(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent access error: %v", err)
	}
}
