// Package validate checks rule preset JSON files before the server loads
// them. It checks:
//   - JSON structure with no unknown fields
//   - Required fields (name, description)
//   - Round count, action window and guess grace within the engine's limits
//   - Preset ids usable in a create-game request
//   - Preset names unique within a directory
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/wricardo/geocard/game/engine"
)

var presetIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidatePreset loads and validates a single preset file. All problems are
// reported, not just the first.
func ValidatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	id := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if !presetIDPattern.MatchString(id) {
		result.fail("Preset id %q must be lowercase letters, digits, '-' or '_'", id)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var rules engine.Rules
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rules); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}
	result.Name = rules.Name

	if strings.TrimSpace(rules.Name) == "" {
		result.fail("name is required")
	}
	if strings.TrimSpace(rules.Description) == "" {
		result.fail("description is required")
	}
	if rules.MaxRounds < engine.MinRounds || rules.MaxRounds > engine.MaxRoundsLimit {
		result.fail("max_rounds must be between %d and %d, got %d", engine.MinRounds, engine.MaxRoundsLimit, rules.MaxRounds)
	}
	if rules.ActionWindowSeconds < 0 || rules.ActionWindowSeconds > engine.MaxActionWindowSecs {
		result.fail("action_window_seconds must be between 0 and %d, got %d", engine.MaxActionWindowSecs, rules.ActionWindowSeconds)
	}
	if rules.GuessGraceSeconds < 0 || rules.GuessGraceSeconds > engine.MaxGuessGraceSeconds {
		result.fail("guess_grace_seconds must be between 0 and %d, got %d", engine.MaxGuessGraceSeconds, rules.GuessGraceSeconds)
	}

	// Same check the server runs on load.
	if result.Valid {
		if err := engine.ValidateRules(&rules); err != nil {
			result.fail("%v", err)
		}
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", rules.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rounds: %d", rules.MaxRounds))
		if rules.ActionWindowSeconds == 0 {
			result.Errors = append(result.Errors, "✓ Action window: open until the turn player starts guessing")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Action window: %ds", rules.ActionWindowSeconds))
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Guess grace: %ds", rules.GuessGraceSeconds))
	}

	return result
}

// ValidateDir validates every *.json file in dir, sorted by file name, and
// flags presets that share a name.
func ValidateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("find preset files: %w", err)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	seen := make(map[string]string)
	for _, file := range files {
		result := ValidatePreset(file)
		if result.Name != "" {
			key := strings.ToLower(strings.TrimSpace(result.Name))
			if first, dup := seen[key]; dup {
				result.fail("name %q is already used by %s", result.Name, first)
			} else {
				seen[key] = result.File
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Report prints a concise report and returns whether every preset is valid.
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No presets found")
	case allValid:
		fmt.Fprintln(w, "✅ All presets are valid!")
	default:
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}
