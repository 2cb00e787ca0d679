// Package gmail wraps the narrow slice of the Gmail API this service
// needs: sending raw messages, creating drafts, searching and reading
// threads.
//
// Every method takes a context, applies a process-wide QPS guard and
// classifies transport failures through the mailerr taxonomy before
// returning, so callers never see a raw googleapi error.
package gmail
