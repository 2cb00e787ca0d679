package gmail

import (
	"context"
	"net/textproto"

	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/aiemployee/mailgate/internal/mailerr"
)

// Self-imposed QPS guard across all Gmail calls from this process,
// independent of the per-class minute budgets the facade enforces.
// Conservative relative to Google's per-user quota units.
const (
	qpsLimit = 2.0
	qpsBurst = 5
)

// MetadataHeaders are the header names fetched for search results and
// reply threading.
var MetadataHeaders = []string{"From", "To", "Subject", "Date", "Message-ID", "References"}

// API is the transport surface the facade depends on. The concrete
// Client talks to Gmail; tests substitute a fake.
type API interface {
	Send(ctx context.Context, raw, threadID string) (SendResult, error)
	CreateDraft(ctx context.Context, raw string) (DraftResult, error)
	Search(ctx context.Context, query string, max int64) ([]MessageSummary, error)
	GetThread(ctx context.Context, id string) (Thread, error)
}

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
	qps *rate.Limiter
}

// NewClient wraps an authenticated Gmail service handle.
func NewClient(svc *gmail.Service) *Client {
	return &Client{
		svc: svc.Users,
		qps: rate.NewLimiter(rate.Limit(qpsLimit), qpsBurst),
	}
}

// Send submits a base64url-encoded envelope. A non-empty threadID
// attaches the message to an existing thread for reply threading.
func (c *Client) Send(ctx context.Context, raw, threadID string) (SendResult, error) {
	if err := c.qps.Wait(ctx); err != nil {
		return SendResult{}, mailerr.Translate(err)
	}
	msg := &gmail.Message{Raw: raw, ThreadId: threadID}
	sent, err := c.svc.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return SendResult{}, mailerr.Translate(err)
	}
	return SendResult{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// CreateDraft stores a base64url-encoded envelope as a draft.
func (c *Client) CreateDraft(ctx context.Context, raw string) (DraftResult, error) {
	if err := c.qps.Wait(ctx); err != nil {
		return DraftResult{}, mailerr.Translate(err)
	}
	draft := &gmail.Draft{Message: &gmail.Message{Raw: raw}}
	created, err := c.svc.Drafts.Create("me", draft).Context(ctx).Do()
	if err != nil {
		return DraftResult{}, mailerr.Translate(err)
	}
	res := DraftResult{ID: created.Id}
	if created.Message != nil {
		res.MessageID = created.Message.Id
	}
	return res, nil
}

// Search lists messages matching a Gmail query, fetching metadata
// headers for each hit. It pages through results up to max.
func (c *Client) Search(ctx context.Context, query string, max int64) ([]MessageSummary, error) {
	var out []MessageSummary
	pageToken := ""
	for int64(len(out)) < max {
		pageSize := max - int64(len(out))
		if pageSize > 100 {
			pageSize = 100
		}

		if err := c.qps.Wait(ctx); err != nil {
			return nil, mailerr.Translate(err)
		}
		req := c.svc.Messages.List("me").Q(query).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, mailerr.Translate(err)
		}

		for _, m := range res.Messages {
			summary, err := c.getSummary(ctx, m.Id)
			if err != nil {
				return nil, err
			}
			out = append(out, summary)
			if int64(len(out)) >= max {
				break
			}
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	return out, nil
}

// GetThread retrieves a thread's messages in metadata form.
func (c *Client) GetThread(ctx context.Context, id string) (Thread, error) {
	if err := c.qps.Wait(ctx); err != nil {
		return Thread{}, mailerr.Translate(err)
	}
	t, err := c.svc.Threads.Get("me", id).Format("metadata").MetadataHeaders(MetadataHeaders...).Context(ctx).Do()
	if err != nil {
		return Thread{}, mailerr.Translate(err)
	}

	out := Thread{ID: t.Id}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, summarize(m))
	}
	return out, nil
}

func (c *Client) getSummary(ctx context.Context, id string) (MessageSummary, error) {
	if err := c.qps.Wait(ctx); err != nil {
		return MessageSummary{}, mailerr.Translate(err)
	}
	m, err := c.svc.Messages.Get("me", id).Format("metadata").MetadataHeaders(MetadataHeaders...).Context(ctx).Do()
	if err != nil {
		return MessageSummary{}, mailerr.Translate(err)
	}
	return summarize(m), nil
}

// summarize flattens a metadata-format message into a MessageSummary.
// Header names are canonicalized because mailers vary their casing
// ("Message-Id" vs "Message-ID").
func summarize(m *gmail.Message) MessageSummary {
	s := MessageSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Headers:  map[string]string{},
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			s.Headers[textproto.CanonicalMIMEHeaderKey(h.Name)] = h.Value
		}
	}
	return s
}

var _ API = (*Client)(nil)
