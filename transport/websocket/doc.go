// Package websocket pushes Blockfall sessions to browsers and terminals.
//
// A central Hub owns every connection. Clients join a session by connecting
// to /ws?session=<id> and from then on receive:
//   - {"event": "state_update", "snapshot": {...}} after every state change,
//     including gravity ticks that no request triggered
//   - {"event": "<engine event>", "data": {...}} for moves, locks, line
//     clears and game over
//
// Clients may send {"command": "left"} frames. With a CommandHandler set the
// hub executes them against the session and replies to the sender only with
// a command_result or error frame.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	hub.SetCommandHandler(func(ctx context.Context, id, cmd string) (interface{}, error) {
//		return gameService.Command(ctx, id, cmd)
//	})
//	go hub.Run(ctx)
//
// Hub implements service.Notifier. Publishing never blocks the caller: when
// the queue is full the message is dropped and logged, and a client whose own
// buffer is full is disconnected.
package websocket
