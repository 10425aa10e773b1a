package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"issuepilot/internal/models"
)

// EventKind is the closed set of webhook event types the dispatcher knows.
// Anything else maps to EventUnknown, which is acknowledged, not rejected.
type EventKind string

const (
	EventInstallation EventKind = "installation"
	EventIssues       EventKind = "issues"
	EventIssueComment EventKind = "issue_comment"
	EventPing         EventKind = "ping"
	EventUnknown      EventKind = "unknown"
)

// ErrMalformedPayload marks a request body that is not valid JSON
var ErrMalformedPayload = errors.New("malformed webhook payload")

// KindOf maps the X-GitHub-Event header to a known event kind
func KindOf(event string) EventKind {
	switch EventKind(event) {
	case EventInstallation, EventIssues, EventIssueComment, EventPing:
		return EventKind(event)
	default:
		return EventUnknown
	}
}

// SupportedEvents lists the event types with dedicated handlers
func SupportedEvents() []string {
	return []string{
		string(EventInstallation),
		string(EventIssues),
		string(EventIssueComment),
		string(EventPing),
	}
}

// IssueUpserter receives issue snapshots extracted from webhook payloads
type IssueUpserter interface {
	UpsertIssue(snapshot models.IssueSnapshot) (*models.Issue, error)
}

// Dispatcher routes one verified inbound event to its handler
type Dispatcher struct {
	Upserter IssueUpserter
	// Logf defaults to log.Printf
	Logf func(format string, args ...interface{})
}

// Result is the acknowledgment body returned to the webhook sender
type Result map[string]interface{}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	if d.Logf != nil {
		d.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Dispatch decodes the payload for the event's kind and runs its handler.
// The payload bytes must be the raw request body; signature verification
// happens before this call. Unknown event types are acknowledged without
// error.
func (d *Dispatcher) Dispatch(event, delivery string, payload []byte) (Result, error) {
	d.logf("webhook: received %s (delivery: %s)", event, delivery)

	switch KindOf(event) {
	case EventInstallation:
		return d.handleInstallation(payload)
	case EventIssues:
		return d.handleIssues(payload)
	case EventIssueComment:
		return d.handleIssueComment(payload)
	case EventPing:
		return d.handlePing(payload)
	default:
		d.logf("webhook: unhandled event type: %s", event)
		return Result{
			"status":  "success",
			"event":   event,
			"message": "Event received but not handled",
		}, nil
	}
}

type installationEvent struct {
	Action       string `json:"action"`
	Installation struct {
		ID int64 `json:"id"`
	} `json:"installation"`
	Repositories []struct {
		FullName string `json:"full_name"`
	} `json:"repositories"`
}

func (d *Dispatcher) handleInstallation(payload []byte) (Result, error) {
	var event installationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch event.Action {
	case "created":
		d.logf("webhook: app installed on installation %d", event.Installation.ID)
		for _, repo := range event.Repositories {
			d.logf("webhook: app installed on repository %s", repo.FullName)
		}
	case "deleted":
		d.logf("webhook: app uninstalled from installation %d", event.Installation.ID)
	}

	return Result{
		"status":          "success",
		"action":          event.Action,
		"installation_id": event.Installation.ID,
	}, nil
}

type issuesEvent struct {
	Action string `json:"action"`
	Issue  struct {
		ID      int64  `json:"id"`
		Number  int    `json:"number"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
	} `json:"issue"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

func (d *Dispatcher) handleIssues(payload []byte) (Result, error) {
	var event issuesEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	snapshot := models.IssueSnapshot{
		GitHubIssueID: event.Issue.ID,
		Number:        event.Issue.Number,
		Title:         event.Issue.Title,
		Body:          event.Issue.Body,
		State:         event.Issue.State,
		Repository:    event.Repository.FullName,
		HTMLURL:       event.Issue.HTMLURL,
	}

	d.logf("webhook: issue %s: #%d %s in %s",
		event.Action, snapshot.Number, snapshot.Title, snapshot.Repository)

	if d.Upserter != nil {
		if _, err := d.Upserter.UpsertIssue(snapshot); err != nil {
			return nil, fmt.Errorf("failed to store issue from webhook: %w", err)
		}
	}

	return Result{
		"status": "success",
		"action": event.Action,
		"issue":  snapshot,
	}, nil
}

type issueCommentEvent struct {
	Action  string `json:"action"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
	Issue struct {
		Number int `json:"number"`
	} `json:"issue"`
}

func (d *Dispatcher) handleIssueComment(payload []byte) (Result, error) {
	var event issueCommentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	body := event.Comment.Body
	if len(body) > 100 {
		body = body[:100] + "..."
	}
	d.logf("webhook: issue comment %s on issue #%d: %s", event.Action, event.Issue.Number, body)

	return Result{
		"status": "success",
		"event":  string(EventIssueComment),
	}, nil
}

type pingEvent struct {
	Zen string `json:"zen"`
}

func (d *Dispatcher) handlePing(payload []byte) (Result, error) {
	var event pingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return Result{
		"status":  "success",
		"message": "Webhook ping received",
		"zen":     event.Zen,
	}, nil
}
