// Package session provides in-memory session management for Blockfall.
//
// Each session owns one engine built from a preset. Sessions use
// 4-character hexadecimal IDs generated from crypto/rand and are looked up
// case-insensitively.
//
// The manager can be handed per-session engine options with
// WithEngineOptions. The server uses this to attach the WebSocket hub to
// every engine so gravity ticks reach clients without a request.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, err := manager.Create("", "classic", preset)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Engine.Start()
//
// Cleanup:
//
// Deleting or expiring a session stops its gravity clock. Nothing is
// persisted; sessions end with the process.
package session
