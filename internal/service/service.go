package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aiemployee/mailgate/internal/config"
	"github.com/aiemployee/mailgate/internal/gmail"
	"github.com/aiemployee/mailgate/internal/logging"
	"github.com/aiemployee/mailgate/internal/mailerr"
	"github.com/aiemployee/mailgate/internal/message"
	"github.com/aiemployee/mailgate/internal/metrics"
	"github.com/aiemployee/mailgate/internal/rate"
	"github.com/aiemployee/mailgate/internal/validate"
)

// Operation classes for rate limiting. Send, reply and draft creation
// share the composition budget; search and thread reads share the read
// budget.
const (
	ClassSend = "send"
	ClassRead = "read"
)

// DefaultSearchMax bounds a search that doesn't name its own limit.
const DefaultSearchMax = 20

// Service routes logical email operations through validation, encoding,
// throttling and the authenticated transport. Construct it once at
// startup and share it across callers.
type Service struct {
	api    gmail.API
	send   rate.Limiter
	read   rate.Limiter
	logger *slog.Logger
	dryRun bool
	now    func() time.Time
}

// New builds a Service over the given transport.
func New(api gmail.API, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		send:   rate.NewSlidingWindow(cfg.SendPerMinute),
		read:   rate.NewSlidingWindow(cfg.ReadPerMinute),
		logger: logger,
		dryRun: cfg.DryRun,
		now:    time.Now,
	}
}

// SendInput is a logical outbound message as received from the caller.
// Recipient fields are comma-separated lists.
type SendInput struct {
	To       string
	Cc       string
	Bcc      string
	ReplyTo  string
	Subject  string
	Body     string
	HTMLBody string
}

// SendOutput acknowledges a submitted message.
type SendOutput struct {
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId,omitempty"`
	DryRun    bool   `json:"dryRun,omitempty"`
}

// ReplyInput addresses an existing thread. The recipient is derived
// from the thread's last message.
type ReplyInput struct {
	ThreadID string
	Cc       string
	Bcc      string
	Body     string
	HTMLBody string
}

// DraftOutput acknowledges a created draft.
type DraftOutput struct {
	DraftID   string `json:"draftId"`
	MessageID string `json:"messageId,omitempty"`
	DryRun    bool   `json:"dryRun,omitempty"`
}

// SearchInput is a read query against the mailbox.
type SearchInput struct {
	Query string
	Max   int64
}

// Send validates, encodes and submits a new message.
func (s *Service) Send(ctx context.Context, in SendInput) (out SendOutput, err error) {
	start := s.now()
	defer func() { s.observe("send", start, err, out.DryRun) }()

	msg, err := s.compose(in)
	if err != nil {
		return SendOutput{}, err
	}
	if s.dryRun {
		return SendOutput{MessageID: "dry-run", DryRun: true}, nil
	}

	raw := message.Encode(msg)
	if err = s.wait(ctx, ClassSend, s.send); err != nil {
		return SendOutput{}, err
	}
	res, err := s.api.Send(ctx, raw, "")
	if err != nil {
		return SendOutput{}, err
	}
	return SendOutput{MessageID: res.ID, ThreadID: res.ThreadID}, nil
}

// Reply validates and submits a reply to an existing thread, deriving
// the recipient, subject and threading headers from the thread's most
// recent message.
func (s *Service) Reply(ctx context.Context, in ReplyInput) (out SendOutput, err error) {
	start := s.now()
	defer func() { s.observe("reply", start, err, out.DryRun) }()

	if strings.TrimSpace(in.ThreadID) == "" {
		return SendOutput{}, mailerr.New(mailerr.KindThreadNotFound, "thread id must not be empty")
	}
	cc, bcc, err := recipientLists(in.Cc, in.Bcc)
	if err != nil {
		return SendOutput{}, err
	}
	body := validate.SanitizeBody(in.Body)
	htmlBody := validate.SanitizeBody(in.HTMLBody)

	if s.dryRun {
		return SendOutput{MessageID: "dry-run", ThreadID: in.ThreadID, DryRun: true}, nil
	}

	// Reply is a composition operation: one admission on the send
	// class covers the metadata fetch and the send.
	if err = s.wait(ctx, ClassSend, s.send); err != nil {
		return SendOutput{}, err
	}

	thread, err := s.api.GetThread(ctx, in.ThreadID)
	if err != nil {
		return SendOutput{}, err
	}
	if len(thread.Messages) == 0 {
		return SendOutput{}, mailerr.New(mailerr.KindThreadNotFound, "thread "+in.ThreadID+" has no messages")
	}
	last := thread.Messages[len(thread.Messages)-1]
	from := last.Header("From")
	if from == "" {
		return SendOutput{}, mailerr.New(mailerr.KindThreadNotFound, "thread "+in.ThreadID+" has no From header to reply to")
	}

	raw := message.Encode(message.Outbound{
		To:         []string{from},
		Cc:         cc,
		Bcc:        bcc,
		Subject:    replySubject(last.Header("Subject")),
		InReplyTo:  last.Header("Message-ID"),
		References: appendReference(last.Header("References"), last.Header("Message-ID")),
		TextBody:   body,
		HTMLBody:   htmlBody,
	})
	res, err := s.api.Send(ctx, raw, thread.ID)
	if err != nil {
		return SendOutput{}, err
	}
	return SendOutput{MessageID: res.ID, ThreadID: res.ThreadID}, nil
}

// Draft validates, encodes and stores a message as a draft.
func (s *Service) Draft(ctx context.Context, in SendInput) (out DraftOutput, err error) {
	start := s.now()
	defer func() { s.observe("draft", start, err, out.DryRun) }()

	msg, err := s.compose(in)
	if err != nil {
		return DraftOutput{}, err
	}
	if s.dryRun {
		return DraftOutput{DraftID: "dry-run", DryRun: true}, nil
	}

	raw := message.Encode(msg)
	if err = s.wait(ctx, ClassSend, s.send); err != nil {
		return DraftOutput{}, err
	}
	res, err := s.api.CreateDraft(ctx, raw)
	if err != nil {
		return DraftOutput{}, err
	}
	return DraftOutput{DraftID: res.ID, MessageID: res.MessageID}, nil
}

// Search runs a mailbox query and returns message summaries.
func (s *Service) Search(ctx context.Context, in SearchInput) (out []gmail.MessageSummary, err error) {
	start := s.now()
	defer func() { s.observe("search", start, err, false) }()

	max := in.Max
	if max <= 0 {
		max = DefaultSearchMax
	}
	if err = s.wait(ctx, ClassRead, s.read); err != nil {
		return nil, err
	}
	return s.api.Search(ctx, in.Query, max)
}

// Thread fetches one thread's messages in metadata form.
func (s *Service) Thread(ctx context.Context, id string) (out gmail.Thread, err error) {
	start := s.now()
	defer func() { s.observe("thread", start, err, false) }()

	if strings.TrimSpace(id) == "" {
		return gmail.Thread{}, mailerr.New(mailerr.KindThreadNotFound, "thread id must not be empty")
	}
	if err = s.wait(ctx, ClassRead, s.read); err != nil {
		return gmail.Thread{}, err
	}
	return s.api.GetThread(ctx, id)
}

// compose sanitizes a SendInput into an encoder-ready message. All
// validation failures surface before any network call.
func (s *Service) compose(in SendInput) (message.Outbound, error) {
	to, err := validate.ParseRecipientList(in.To)
	if err != nil {
		return message.Outbound{}, mailerr.Wrap(mailerr.KindInvalidRecipient, err)
	}
	if len(to) == 0 {
		return message.Outbound{}, mailerr.New(mailerr.KindInvalidRecipient, "at least one recipient is required")
	}
	cc, bcc, err := recipientLists(in.Cc, in.Bcc)
	if err != nil {
		return message.Outbound{}, err
	}
	if in.ReplyTo != "" && !validate.ValidAddress(in.ReplyTo) {
		return message.Outbound{}, mailerr.New(mailerr.KindInvalidRecipient, "invalid reply-to address: "+in.ReplyTo)
	}

	return message.Outbound{
		To:       to,
		Cc:       cc,
		Bcc:      bcc,
		ReplyTo:  in.ReplyTo,
		Subject:  validate.SanitizeSubject(in.Subject),
		TextBody: validate.SanitizeBody(in.Body),
		HTMLBody: validate.SanitizeBody(in.HTMLBody),
	}, nil
}

func recipientLists(cc, bcc string) ([]string, []string, error) {
	ccList, err := validate.ParseRecipientList(cc)
	if err != nil {
		return nil, nil, mailerr.Wrap(mailerr.KindInvalidRecipient, err)
	}
	bccList, err := validate.ParseRecipientList(bcc)
	if err != nil {
		return nil, nil, mailerr.Wrap(mailerr.KindInvalidRecipient, err)
	}
	return ccList, bccList, nil
}

// wait blocks on the class budget and records how long the caller was
// held back.
func (s *Service) wait(ctx context.Context, class string, l rate.Limiter) error {
	start := s.now()
	if err := l.Wait(ctx); err != nil {
		return mailerr.Translate(err)
	}
	waited := s.now().Sub(start)
	metrics.ObserveRateWait(class, waited)
	if waited > 0 {
		s.logger.Debug("rate budget delay",
			logging.Class(class),
			slog.Duration(logging.KeyDuration, waited))
	}
	return nil
}

// observe finalizes per-operation logging and metrics.
func (s *Service) observe(operation string, start time.Time, err error, dryRun bool) {
	status := logging.StatusSuccess
	switch {
	case err != nil:
		status = logging.StatusError
	case dryRun:
		status = logging.StatusDryRun
	}
	elapsed := s.now().Sub(start)
	metrics.ObserveOperation(operation, status, elapsed)

	log := s.logger.With(logging.Operation(operation), logging.Status(status))
	if err != nil {
		log.Error("operation failed",
			logging.Kind(string(mailerr.KindOf(err))),
			logging.Err(err))
		return
	}
	log.Info("operation completed",
		slog.Duration(logging.KeyDuration, elapsed))
}

// replySubject prefixes "Re: " unless the subject already carries it.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// appendReference extends a References chain with the replied-to id.
func appendReference(references, messageID string) string {
	if messageID == "" {
		return references
	}
	if references == "" {
		return messageID
	}
	return references + " " + messageID
}
