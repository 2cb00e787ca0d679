// Package service is the single entry point callers use to act on the
// mailbox. Every operation runs the same pipeline: sanitize the input,
// build the wire envelope for composing operations, wait on the
// operation class's rate budget, call the transport, and classify any
// failure into a semantic error kind.
//
// The Service trusts its caller to have approved an action before
// invoking a send-type operation; approval policy lives outside this
// core.
package service
