// Package config manages Blockfall presets.
//
// A preset is an engine.GameConfig stored as a JSON or YAML file in the
// configs directory. The file name without its extension is the preset id
// used when creating sessions. A preset can:
//   - fix the random seed so every game deals the same pieces
//   - script an opening sequence of kinds
//   - switch the session to turn-based play, where gravity only advances on
//     an explicit tick command
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadConfig("sprint")
//	presets, err := manager.ListConfigs()
//	fallback := manager.GetDefault()
//
// The manager caches presets after the first load. When the directory has no
// classic preset it falls back to the first valid one, and to a built-in
// real-time preset when there is none at all.
package config
