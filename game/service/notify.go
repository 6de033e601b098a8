package service

import "github.com/wricardo/blockfall/game/engine"

// NotifyingEngineOptions returns a per-session engine option factory that
// forwards every snapshot and event of the session's engine to n
func NotifyingEngineOptions(n Notifier) func(sessionID string) []engine.Option {
	return func(sessionID string) []engine.Option {
		return []engine.Option{
			engine.WithChangeHandler(func(snap engine.Snapshot) {
				n.PublishSnapshot(sessionID, &snap)
			}),
			engine.WithEventSink(engine.EventSinkFunc(func(ev engine.Event) {
				n.PublishEvent(sessionID, ev)
			})),
		}
	}
}
