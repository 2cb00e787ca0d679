// Package message serializes a logical outbound email into the raw
// wire format the Gmail API expects: an RFC 2822 envelope encoded with
// URL-safe unpadded base64, ready to be placed in the Raw field of a
// send or draft call.
//
// Encoding is one-way and total: given already-sanitized input it
// cannot fail, and nothing in this codebase ever decodes the result.
package message
