package gmail

import "net/textproto"

// SendResult is the provider's acknowledgment of a sent message.
type SendResult struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
}

// DraftResult is the provider's acknowledgment of a created draft.
type DraftResult struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId,omitempty"`
}

// MessageSummary carries the metadata slice of one message: enough for
// search results and reply threading, never the full payload.
type MessageSummary struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"threadId,omitempty"`
	Snippet  string            `json:"snippet,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// Header returns a header value by name regardless of the casing the
// sending mailer used. Keys are stored in canonical MIME form, so
// "Message-ID", "Message-Id" and "MESSAGE-ID" all resolve to the same
// entry.
func (m MessageSummary) Header(name string) string {
	return m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// Thread is an ordered sequence of message summaries, oldest first.
type Thread struct {
	ID       string           `json:"id"`
	Messages []MessageSummary `json:"messages"`
}
