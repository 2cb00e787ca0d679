// Package mailerr defines the closed set of semantic error kinds the
// mail service surfaces to its callers, and the translation from raw
// transport failures into those kinds.
//
// Callers never see a googleapi.Error or a bare network error: every
// failure is classified into one Kind with an optional human-readable
// detail, so an agent can branch on the kind without parsing messages.
package mailerr
