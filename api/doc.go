// Package api exposes Blockfall sessions over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions              create a session ({"config_id": "agent"})
//   - GET    /api/sessions              list sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}         session details with the current snapshot
//   - DELETE /api/sessions/{id}         delete a session and halt its gravity
//
// Game:
//   - GET  /api/sessions/{id}/state          snapshot (?format=text for an ASCII board)
//   - POST /api/sessions/{id}/commands       {"command": "rotate"}
//   - POST /api/sessions/{id}/bulk-commands  {"commands": ["left", "hard_drop"]}, at most 50
//   - POST /api/sessions/{id}/start          begin, or resume after stop
//   - POST /api/sessions/{id}/stop           halt gravity
//   - POST /api/sessions/{id}/restart        fresh game
//
// Presets:
//   - GET  /api/configs         list presets
//   - GET  /api/configs/{name}  one preset
//   - POST /api/configs         save a preset as JSON
//
// Live updates:
//   - GET /ws?session={id}  WebSocket stream of snapshots and engine events
//
// Every response carries an X-Request-ID header. Responses under /api are
// gzip-compressed when the client accepts it. Errors are returned as
// {"error": "..."} with 404 for unknown sessions or presets and 400 for
// unknown or disallowed commands and invalid presets.
package api
