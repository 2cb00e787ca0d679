package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiemployee/mailgate/internal/service"
)

// errActionFailed signals a failed action whose outcome was already
// reported in the JSON envelope. Execute maps it to a non-zero exit.
var errActionFailed = errors.New("action failed")

// runResult is the JSON envelope printed for every run invocation.
type runResult struct {
	Success    bool   `json:"success"`
	ActionType string `json:"action_type"`
	Target     string `json:"target"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// runParams carries the action parameters decoded from --params.
type runParams struct {
	To       string `json:"to"`
	Cc       string `json:"cc"`
	Bcc      string `json:"bcc"`
	ReplyTo  string `json:"reply_to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body"`
	ThreadID string `json:"thread_id"`
	Query    string `json:"query"`
	Max      int64  `json:"max_results"`
}

func newRunCmd() *cobra.Command {
	var (
		debugMode bool
		dryRun    bool
		params    string
	)

	cmd := &cobra.Command{
		Use:   "run <action>",
		Short: "Execute a single mail action and print a JSON result",
		Long: `Execute one mail action and print a JSON envelope with the outcome
to stdout. Intended for callers that shell out instead of speaking MCP.

Actions:
  send_email       requires to, subject, body
  draft_email      requires to, subject, body
  reply_to_thread  requires thread_id, body (alias: reply_email)
  search_messages  requires query

Parameters are passed as a JSON object via --params, for example:
  mailgate run send_email --params '{"to":"a@example.com","subject":"Hi","body":"Hello"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runAction(args[0], params, debugMode, dryRun)
			if errors.Is(err, errActionFailed) {
				// The envelope on stdout already carries the failure.
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and log the action without calling Gmail")
	cmd.Flags().StringVar(&params, "params", "{}", "Action parameters as a JSON object")

	return cmd
}

func runAction(action, rawParams string, debugMode, dryRun bool) error {
	var p runParams
	if err := json.Unmarshal([]byte(rawParams), &p); err != nil {
		return fmt.Errorf("invalid --params: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mail, manager, _, err := newMailService(ctx, debugMode, dryRun)
	if err != nil {
		return err
	}
	// Returning instead of exiting keeps this teardown on the failure
	// path, so the latest token is still persisted.
	defer func() { _ = manager.Close() }()

	return runAndReport(ctx, mail, os.Stdout, action, p)
}

// runAndReport executes one action, prints its JSON envelope and
// returns errActionFailed when the action itself failed.
func runAndReport(ctx context.Context, mail *service.Service, w io.Writer, action string, p runParams) error {
	target, out, actionErr := executeAction(ctx, mail, action, p)

	res := runResult{
		Success:    actionErr == nil,
		ActionType: action,
		Target:     target,
		Result:     out,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if actionErr != nil {
		res.Error = actionErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if actionErr != nil {
		return errActionFailed
	}
	return nil
}

// executeAction dispatches one action against the mail service and
// returns the human-readable target alongside the operation output.
func executeAction(ctx context.Context, mail *service.Service, action string, p runParams) (string, any, error) {
	switch action {
	case "send_email":
		if missing := firstMissing(map[string]string{"to": p.To, "subject": p.Subject, "body": p.Body}); missing != "" {
			return p.To, nil, fmt.Errorf("missing required parameter: %s", missing)
		}
		out, err := mail.Send(ctx, sendInputFromParams(p))
		return p.To, out, err

	case "draft_email":
		if missing := firstMissing(map[string]string{"to": p.To, "subject": p.Subject, "body": p.Body}); missing != "" {
			return p.To, nil, fmt.Errorf("missing required parameter: %s", missing)
		}
		out, err := mail.Draft(ctx, sendInputFromParams(p))
		return p.To, out, err

	case "reply_to_thread", "reply_email":
		if missing := firstMissing(map[string]string{"thread_id": p.ThreadID, "body": p.Body}); missing != "" {
			return p.ThreadID, nil, fmt.Errorf("missing required parameter: %s", missing)
		}
		out, err := mail.Reply(ctx, service.ReplyInput{
			ThreadID: p.ThreadID,
			Cc:       p.Cc,
			Bcc:      p.Bcc,
			Body:     p.Body,
			HTMLBody: p.HTMLBody,
		})
		return p.ThreadID, out, err

	case "search_messages":
		if p.Query == "" {
			return "", nil, fmt.Errorf("missing required parameter: query")
		}
		out, err := mail.Search(ctx, service.SearchInput{Query: p.Query, Max: p.Max})
		return p.Query, out, err
	}

	return "", nil, fmt.Errorf("unknown action type: %s", action)
}

func sendInputFromParams(p runParams) service.SendInput {
	return service.SendInput{
		To:       p.To,
		Cc:       p.Cc,
		Bcc:      p.Bcc,
		ReplyTo:  p.ReplyTo,
		Subject:  p.Subject,
		Body:     p.Body,
		HTMLBody: p.HTMLBody,
	}
}

// firstMissing returns the name of the first empty required parameter,
// checked in a stable order.
func firstMissing(required map[string]string) string {
	for _, name := range []string{"to", "subject", "body", "thread_id", "query"} {
		if val, ok := required[name]; ok && val == "" {
			return name
		}
	}
	return ""
}
