// Package shiori is a session-aware client for the Shiori bookmark API.
//
// A Client logs in with the configured credentials, caches the returned
// session id for an hour, and reuses it for bookmark and tag requests. A 401
// from the server clears the cached session so the next call logs in again.
// Every failure surfaces as an *APIError whose Kind drives the message shown
// to the user and whether a retry is offered.
package shiori
