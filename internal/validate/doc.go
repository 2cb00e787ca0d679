// Package validate sanitizes and bounds-checks user-supplied message
// fields before they reach the Gmail transport.
//
// All functions are pure: no network or disk access, deterministic
// output for a given input. Callers run these checks before composing
// a message so that bad input fails fast without spending API quota.
package validate
