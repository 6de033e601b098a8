// Package autoplay plans and plays Blockfall placements.
//
// The Planner looks at the locked board and the active piece, tries every
// rotation and column the piece can reach by rotating in place and sliding
// sideways, drops it, and scores the resulting board by aggregate height,
// completed lines, holes and bumpiness. The best Placement carries the
// command list that reaches it.
//
// The Driver replays placements against anything with Snapshot and Apply,
// which is how cmd/analyze simulates games and how the MCP suggest_placement
// tool builds its advice.
package autoplay
