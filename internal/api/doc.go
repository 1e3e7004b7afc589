// Package api implements the HTTP JSON endpoints for raid signups.
//
// Every endpoint responds with the uniform envelope
//
//	{"success": bool, "errorMsg": string|null, "result": any|null}
//
// and an HTTP 200 status; failures are reported inside the envelope.
// Domain errors from the store map to specific user-facing messages,
// input-shape problems to a generic invalid-input message, and anything
// unexpected to a generic internal error that is logged server-side only.
package api
