// Package coach talks to a hosted language model on behalf of the user.
package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"routine-coach/internal/model"
)

const (
	// FallbackReply is shown when the model cannot be reached.
	FallbackReply = "Sorry, I can't reach the coach right now. Let's try again in a moment."
	// FallbackQuote closes the routine adjustments when the model fails.
	FallbackQuote = "Stay focused, one step at a time."

	recentLogsInContext     = 15
	recentLogsInAdjustments = 30
	unknownTask             = "Unknown"
)

var ErrDisabled = errors.New("coach disabled")

const systemPrompt = `You are the coach of a habit tracking app.
Your goal is to help the user stay consistent, not perfect.
Use the context about their routines and history to give personal advice.

Rules:
1. Be empathetic and practical, grounded in behavioural psychology.
2. If the user keeps failing a task, suggest shrinking it or moving it to another time.
3. Never use guilt.
4. Keep answers short and focused on one or two actionable steps.

Current context:
%s`

// Request is one completion call.
type Request struct {
	System  string
	History []model.ChatMessage
	Message string
	// JSON asks the model for an application/json answer.
	JSON bool
}

// Completer turns a request into model text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Coach builds prompts from the user's data and maps failures to fallbacks.
type Coach struct {
	completer Completer
	timeout   time.Duration
}

// New returns a coach. A nil completer makes every call fall back.
func New(completer Completer, timeout time.Duration) *Coach {
	return &Coach{completer: completer, timeout: timeout}
}

// Input is what the coach knows when answering.
type Input struct {
	Message   string
	History   []model.ChatMessage
	Templates []model.Template
	// Logs are expected newest first.
	Logs []model.Log
}

// Reply is the coach answer. Fallback is set when Text is the apology.
type Reply struct {
	Text     string
	Fallback bool
}

// Reply asks the model for an answer to in.Message.
func (c *Coach) Reply(ctx context.Context, in Input) Reply {
	text, err := c.complete(ctx, Request{
		System:  fmt.Sprintf(systemPrompt, BuildContext(in.Templates, in.Logs)),
		History: in.History,
		Message: in.Message,
	})
	if err != nil {
		log.Printf("[warn] coach reply: %v", err)
		return Reply{Text: FallbackReply, Fallback: true}
	}
	return Reply{Text: text}
}

// Suggestion is one proposed change to the routine.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Adjustments is the structured answer to a routine review.
type Adjustments struct {
	Suggestions  []Suggestion `json:"suggestions"`
	EmpathyQuote string       `json:"empathyQuote"`
	Fallback     bool         `json:"-"`
}

type logLine struct {
	Date          string       `json:"date"`
	Task          string       `json:"task"`
	Status        model.Status `json:"status"`
	Justification string       `json:"justification,omitempty"`
}

// Adjustments asks the model to spot problematic tasks in recent logs.
func (c *Coach) Adjustments(ctx context.Context, templates []model.Template, logs []model.Log) Adjustments {
	titles := titlesByID(templates)
	if len(logs) > recentLogsInAdjustments {
		logs = logs[:recentLogsInAdjustments]
	}
	lines := make([]logLine, 0, len(logs))
	for _, l := range logs {
		lines = append(lines, logLine{Date: l.Date, Task: titleOf(titles, l.TaskID), Status: l.Status, Justification: l.Justification})
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fallbackAdjustments()
	}

	prompt := fmt.Sprintf(`Analyse these logs: %s. Identify problematic tasks and suggest 3 adjustments. `+
		`Answer as JSON: {"suggestions":[{"title":"","description":""}],"empathyQuote":""}`, payload)
	text, err := c.complete(ctx, Request{Message: prompt, JSON: true})
	if err != nil {
		log.Printf("[warn] coach adjustments: %v", err)
		return fallbackAdjustments()
	}

	adj, err := ParseAdjustments(text)
	if err != nil {
		log.Printf("[warn] coach adjustments: %v", err)
		return fallbackAdjustments()
	}
	return adj
}

// ParseAdjustments decodes the model answer, tolerating a fenced code block.
func ParseAdjustments(text string) (Adjustments, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		text = "{}"
	}
	var adj Adjustments
	if err := json.Unmarshal([]byte(text), &adj); err != nil {
		return Adjustments{}, fmt.Errorf("parse adjustments: %w", err)
	}
	if adj.EmpathyQuote == "" {
		adj.EmpathyQuote = FallbackQuote
	}
	return adj, nil
}

func fallbackAdjustments() Adjustments {
	return Adjustments{EmpathyQuote: FallbackQuote, Fallback: true}
}

func (c *Coach) complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.completer == nil {
		return "", ErrDisabled
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}

// BuildContext serializes active routine titles and the most recent logs.
func BuildContext(templates []model.Template, logs []model.Log) string {
	var active []string
	for _, t := range templates {
		if t.Active && !t.IsArchived {
			active = append(active, t.Title)
		}
	}

	titles := titlesByID(templates)
	if len(logs) > recentLogsInContext {
		logs = logs[:recentLogsInContext]
	}
	recent := make([]string, 0, len(logs))
	for _, l := range logs {
		recent = append(recent, fmt.Sprintf("%s: %s -> %s", l.Date, titleOf(titles, l.TaskID), l.Status))
	}

	var b strings.Builder
	b.WriteString("User context:\n")
	b.WriteString("- Active routines: " + strings.Join(active, ", ") + "\n")
	b.WriteString("- Recent history: " + strings.Join(recent, "; "))
	return b.String()
}

func titlesByID(templates []model.Template) map[string]string {
	titles := make(map[string]string, len(templates))
	for _, t := range templates {
		titles[t.ID] = t.Title
	}
	return titles
}

func titleOf(titles map[string]string, id string) string {
	if title, ok := titles[id]; ok && title != "" {
		return title
	}
	return unknownTask
}
