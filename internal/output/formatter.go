package output

import (
	"encoding/json"
	"fmt"
	"os"

	"issuepilot/internal/models"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Issue(i *models.Issue, lifecycle string)
	IssueList(issues []models.Issue, lifecycles []string, title string)
	IssueBrief(i *models.Issue, lifecycle string)
	Session(s *models.AgentSession)
	Success(msg string)
	Error(err error)
	Info(msg string)
	KeyValue(key, value string)
	Section(title string)
	JSON(v interface{})
}

// TextFormatter outputs human-readable text
type TextFormatter struct{}

// JSONFormatter outputs JSON
type JSONFormatter struct{}

// New returns the appropriate formatter based on json flag
func New(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// TextFormatter implementations

func (f *TextFormatter) Issue(i *models.Issue, lifecycle string) {
	fmt.Printf("ID:         %d\n", i.ID)
	fmt.Printf("GitHub ID:  %d\n", i.GitHubIssueID)
	fmt.Printf("Number:     #%d\n", i.Number)
	fmt.Printf("Title:      %s\n", i.Title)
	fmt.Printf("State:      %s\n", i.State)
	fmt.Printf("Repository: %s\n", i.Repository)
	if lifecycle != "" {
		fmt.Printf("Pipeline:   %s\n", lifecycle)
	}
	if i.HTMLURL != "" {
		fmt.Printf("URL:        %s\n", i.HTMLURL)
	}
	fmt.Printf("Updated:    %s\n", i.UpdatedAt.Format(models.DateTimeShortFormat))
}

func (f *TextFormatter) IssueList(issues []models.Issue, lifecycles []string, title string) {
	if title != "" {
		fmt.Printf("%s (%d):\n", title, len(issues))
	}
	for idx := range issues {
		lifecycle := ""
		if idx < len(lifecycles) {
			lifecycle = lifecycles[idx]
		}
		f.IssueBrief(&issues[idx], lifecycle)
	}
}

func (f *TextFormatter) IssueBrief(i *models.Issue, lifecycle string) {
	tag := ""
	if lifecycle != "" {
		tag = " [" + lifecycle + "]"
	}
	fmt.Printf("[%d] #%d %s - %s%s\n", i.ID, i.Number, i.State, i.Title, tag)
}

func (f *TextFormatter) Session(s *models.AgentSession) {
	fmt.Printf("Session:    %s\n", s.SessionID)
	fmt.Printf("Issue ID:   %d\n", s.IssueID)
	fmt.Printf("Kind:       %s\n", s.Kind)
	fmt.Printf("Status:     %s\n", s.Status)
	if s.ConfidenceScore != nil {
		fmt.Printf("Confidence: %.0f\n", *s.ConfidenceScore)
	}
	if s.HasActionPlan() {
		fmt.Printf("\nAction Plan:\n%s\n", *s.ActionPlan)
	}
	if s.Result != nil && *s.Result != "" {
		fmt.Printf("\nResult:\n%s\n", *s.Result)
	}
	fmt.Printf("Created:    %s\n", s.CreatedAt.Format(models.DateTimeShortFormat))
}

func (f *TextFormatter) Success(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) Error(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func (f *TextFormatter) Info(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) KeyValue(key, value string) {
	fmt.Printf("%s: %s\n", key, value)
}

func (f *TextFormatter) Section(title string) {
	fmt.Printf("\n%s:\n", title)
}

func (f *TextFormatter) JSON(v interface{}) {
	// TextFormatter doesn't output JSON, but provide fallback
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		f.Error(err)
		return
	}
	fmt.Println(string(data))
}

// JSONFormatter implementations

func (f *JSONFormatter) Issue(i *models.Issue, lifecycle string) {
	f.JSON(map[string]interface{}{"issue": i, "issue_state": lifecycle})
}

func (f *JSONFormatter) IssueList(issues []models.Issue, lifecycles []string, title string) {
	entries := make([]map[string]interface{}, 0, len(issues))
	for idx := range issues {
		lifecycle := ""
		if idx < len(lifecycles) {
			lifecycle = lifecycles[idx]
		}
		entries = append(entries, map[string]interface{}{
			"issue":       issues[idx],
			"issue_state": lifecycle,
		})
	}
	f.JSON(map[string]interface{}{
		"count":  len(issues),
		"issues": entries,
	})
}

func (f *JSONFormatter) IssueBrief(i *models.Issue, lifecycle string) {
	f.Issue(i, lifecycle)
}

func (f *JSONFormatter) Session(s *models.AgentSession) {
	f.JSON(s)
}

func (f *JSONFormatter) Success(msg string) {
	f.JSON(map[string]interface{}{"success": true, "message": msg})
}

func (f *JSONFormatter) Error(err error) {
	f.JSON(map[string]interface{}{"error": true, "message": err.Error()})
}

func (f *JSONFormatter) Info(msg string) {
	f.JSON(map[string]interface{}{"message": msg})
}

func (f *JSONFormatter) KeyValue(key, value string) {
	f.JSON(map[string]string{key: value})
}

func (f *JSONFormatter) Section(title string) {
	// JSON doesn't need section headers
}

func (f *JSONFormatter) JSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, `{"error": true, "message": "JSON marshal error: %s"}`+"\n", err.Error())
		return
	}
	fmt.Println(string(data))
}
