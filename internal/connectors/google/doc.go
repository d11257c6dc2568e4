// Package google provides shared infrastructure for Google API clients.
//
// It contains:
//   - Service factories for creating authenticated Google API clients
//   - Error mapping for common Google API errors (401, 403, 404, 429)
//
// # Usage
//
// The calendar client uses this package with a caller-supplied access token:
//
//	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
//	svc, err := google.NewCalendarService(ctx, ts)
//
// # OAuth2 Scopes
//
// Writing events needs https://www.googleapis.com/auth/calendar.events.
// Token acquisition and refresh are the caller's responsibility.
package google
