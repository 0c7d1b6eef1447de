// Package config manages the rule presets games are created with.
//
// Presets are JSON files in the presets directory, one per file, named by
// their id:
//
//	{
//	  "name": "Quick",
//	  "description": "Three short rounds",
//	  "max_rounds": 3,
//	  "action_window_seconds": 5,
//	  "guess_grace_seconds": 2
//	}
//
// Usage:
//
//	manager, err := config.NewManager("presets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadPreset("quick")
//	defaults := manager.Default()
//	presets, err := manager.ListPresets()
//
// classic.json is the default when present, otherwise the built-in rules
// are. The id "default" always resolves. Every preset is checked with
// engine.ValidateRules before it is served.
package config
