// Package http provides HTTP handlers and middleware for the schedule board API.
//
// The router exposes the following endpoints:
//   - POST /users/signup: registers an account. Body: {"email","password","display_name"}.
//     Open to unauthenticated callers.
//   - POST /users/login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie. Open to unauthenticated
//     callers.
//   - POST /users/logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and clears the
//     cookie.
//   - GET /users/me, PUT /users/me, DELETE /users/me: self-service profile endpoints.
//     The PUT exchanges {"current_password","new_password","display_name"} and the
//     DELETE is gated on {"password"}; withdrawal also soft deletes every active
//     schedule the caller owns.
//   - GET /schedules, POST /schedules, GET/PUT/DELETE /schedules/{id},
//     POST /schedules/{id}/restore: schedule endpoints exchanging the `scheduleDTO`
//     payload defined in schedule_handler.go. Listing is scoped to the caller's own
//     active schedules; delete and restore are gated on {"password"}.
//   - POST /schedules/{id}/comments, GET /schedules/{id}/comments,
//     GET /users/{id}/comments, PUT /comments/{id}, DELETE /comments/{id}: comment
//     endpoints exchanging the `commentDTO` payload defined in comment_handler.go.
//     Deletion is gated on the author's {"password"} and has no restore path.
//
// Every endpoint other than /, /users/signup, and /users/login sits behind the
// session middleware. Request/response DTOs live alongside their respective
// handlers so tests and documentation share the same ground truth.
package http
