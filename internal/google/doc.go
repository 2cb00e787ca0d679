// Package google owns the OAuth credential/token pair for the single
// Gmail account this process serves.
//
// The Manager loads the client credentials and the persisted token at
// construction time, refreshes the access token shortly before expiry
// with a single-flight guard, and persists every refreshed token back
// to disk atomically so a restarted process resumes from the latest
// token. Obtaining the initial token (the interactive authorization
// flow) is an external bootstrap step; without its output the Manager
// refuses to start.
package google
