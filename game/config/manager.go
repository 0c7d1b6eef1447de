package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

const (
	// DefaultPresetID is the preset games use when none is requested.
	DefaultPresetID = "classic"
	// BuiltinPresetID always resolves, to engine.DefaultRules unless a file
	// overrides it.
	BuiltinPresetID = "default"
)

// Manager serves rule presets from a directory of JSON files and caches them
// once parsed.
type Manager struct {
	dir string

	mu       sync.RWMutex
	defaults *engine.Rules
	cache    map[string]*engine.Rules
}

// NewManager creates a preset manager over dir. A missing directory is not an
// error; only the built-in rules are available then.
func NewManager(dir string) (*Manager, error) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("preset path is not a directory: %s", dir)
	}

	m := &Manager{dir: dir, cache: make(map[string]*engine.Rules)}
	if err := m.loadDefaults(); err != nil {
		return nil, fmt.Errorf("load default preset: %w", err)
	}
	return m, nil
}

// LoadPreset returns a copy of the rules of preset id. A ".json" suffix is
// accepted.
func (m *Manager) LoadPreset(id string) (*engine.Rules, error) {
	id, err := presetID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	rules, ok := m.cache[id]
	m.mu.RUnlock()
	if ok {
		return copyRules(rules), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rules, ok := m.cache[id]; ok {
		return copyRules(rules), nil
	}

	rules, err = m.readPreset(id)
	if errors.Is(err, ErrPresetNotFound) && id == BuiltinPresetID {
		rules, err = engine.DefaultRules(), nil
	}
	if err != nil {
		return nil, err
	}
	m.cache[id] = rules
	return copyRules(rules), nil
}

// ListPresets returns every valid preset on disk, sorted by id. Invalid files
// are skipped; the validate command reports them.
func (m *Manager) ListPresets() ([]*service.PresetInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read preset directory: %w", err)
	}

	var presets []*service.PresetInfo
	builtinOnDisk := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		rules, err := m.LoadPreset(id)
		if err != nil {
			continue
		}
		builtinOnDisk = builtinOnDisk || id == BuiltinPresetID
		presets = append(presets, presetInfo(entry.Name(), id, rules))
	}
	if !builtinOnDisk {
		presets = append(presets, presetInfo("", BuiltinPresetID, engine.DefaultRules()))
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// Default returns a copy of the rules used when no preset is requested.
func (m *Manager) Default() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRules(m.defaults)
}

// SetDefault makes preset id the default.
func (m *Manager) SetDefault(id string) error {
	rules, err := m.LoadPreset(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaults = rules
	m.mu.Unlock()
	return nil
}

// Reload drops the cache so edited files are read again.
func (m *Manager) Reload() error {
	m.mu.Lock()
	m.cache = make(map[string]*engine.Rules)
	m.mu.Unlock()
	return m.loadDefaults()
}

func (m *Manager) readPreset(id string) (*engine.Rules, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, ErrPresetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", id, err)
	}

	var rules engine.Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPreset, id, err)
	}
	if err := engine.ValidateRules(&rules); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPreset, id, err)
	}
	return &rules, nil
}

// loadDefaults prefers DefaultPresetID, then the built-in rules.
func (m *Manager) loadDefaults() error {
	rules, err := m.LoadPreset(DefaultPresetID)
	if errors.Is(err, ErrPresetNotFound) {
		rules, err = m.LoadPreset(BuiltinPresetID)
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaults = rules
	m.mu.Unlock()
	return nil
}

// presetID strips ".json" and rejects ids that could leave the directory.
func presetID(id string) (string, error) {
	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: bad preset id %q", ErrPresetNotFound, id)
	}
	return id, nil
}

func presetInfo(filename, id string, r *engine.Rules) *service.PresetInfo {
	return &service.PresetInfo{
		Filename:            filename,
		PresetID:            id,
		Name:                r.Name,
		Description:         r.Description,
		MaxRounds:           r.MaxRounds,
		ActionWindowSeconds: r.ActionWindowSeconds,
		GuessGraceSeconds:   r.GuessGraceSeconds,
	}
}

func copyRules(r *engine.Rules) *engine.Rules {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
