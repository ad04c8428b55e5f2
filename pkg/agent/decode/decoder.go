// Package decode turns raw model output into validated decision structs. It
// never returns a malformed decision to the caller: every decode path ends in
// a clean parse, a single repair attempt, or a deterministic fallback.
package decode

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"

	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
)

// Outcome records which path produced a decision, for logging and tests.
type Outcome int

const (
	OutcomeClean Outcome = iota
	OutcomeRepaired
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeRepaired:
		return "repaired"
	default:
		return "fallback"
	}
}

// RepairFunc asks a model to rewrite broken output as valid JSON, given the
// error the first parse produced. It is called at most once per decode.
type RepairFunc func(ctx context.Context, raw string, cause error) (string, error)

var fencedPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls the first plausible JSON object out of free-form model
// text. It tries fenced blocks, then brace-balanced scanning, then the crude
// first-brace-to-last-brace slice.
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if m := fencedPattern.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
		text = candidate
	}
	if candidate := balancedObject(text); candidate != "" {
		return candidate
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		return text[first : last+1]
	}
	return ""
}

// balancedObject scans for the first brace-balanced object that parses.
func balancedObject(text string) string {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate
					}
					i = len(text)
				}
			}
		}
	}
	return ""
}

// Decoder decodes router, plan and execute outputs with a shared repair hook.
type Decoder struct {
	repair RepairFunc
	logger *log.Logger
}

func NewDecoder(repair RepairFunc, logger *log.Logger) *Decoder {
	return &Decoder{repair: repair, logger: logger}
}

func (d *Decoder) decodeInto(ctx context.Context, raw string, target interface{ Validate() error }) Outcome {
	decodeErr := errors.New("no JSON object found in output")
	if candidate := ExtractJSON(raw); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), target); err != nil {
			decodeErr = err
		} else if err := target.Validate(); err != nil {
			decodeErr = err
		} else {
			return OutcomeClean
		}
	}
	if d.repair != nil {
		repaired, err := d.repair(ctx, raw, decodeErr)
		if err == nil {
			if candidate := ExtractJSON(repaired); candidate != "" {
				if err := json.Unmarshal([]byte(candidate), target); err == nil {
					if err := target.Validate(); err == nil {
						return OutcomeRepaired
					}
				}
			}
		} else if d.logger != nil {
			d.logger.Printf("[DECODE] repair call failed: %v", err)
		}
	}
	return OutcomeFallback
}

// DecodeRouter parses a routing decision, defaulting to complex so that an
// unreadable answer never downgrades a request to the weak path.
func (d *Decoder) DecodeRouter(ctx context.Context, raw string) (schema.RouterDecision, Outcome) {
	var decision schema.RouterDecision
	outcome := d.decodeInto(ctx, raw, &decision)
	if outcome == OutcomeFallback {
		decision = schema.RouterDecision{
			Mode:      schema.RouterComplex,
			Reasoning: "routing output unreadable, defaulting to complex",
		}
	}
	return decision, outcome
}

// DecodePlan parses a planning decision. When the output is unrecoverable and
// the user was asking for a deletion, the decision pivots straight to execute
// so the request is not lost behind an apology.
func (d *Decoder) DecodePlan(ctx context.Context, raw, userMessage, language string) (schema.PlanDecision, Outcome) {
	var decision schema.PlanDecision
	outcome := d.decodeInto(ctx, raw, &decision)
	if outcome != OutcomeFallback {
		return decision, outcome
	}
	if rules.IsDeletionRequest(userMessage) {
		return schema.PlanDecision{
			Mode:              schema.ModeExecute,
			AssistantMessage:  "",
			IntentDescription: "Delete the event the user referred to: " + userMessage,
			Language:          language,
		}, outcome
	}
	message := "Sorry, something went wrong while processing your request. Please try again."
	if language == "ko" {
		message = "죄송합니다. 요청을 처리하는 중 문제가 발생했습니다. 다시 시도해 주세요."
	}
	return schema.PlanDecision{
		Mode:             schema.ModePlan,
		AssistantMessage: message,
		Language:         language,
	}, outcome
}

// DecodeExecute parses a tool-call decision. On unrecoverable output it
// returns a delete_event fallback when the user asked for a deletion, else
// nil so the caller can degrade to a planned reply.
func (d *Decoder) DecodeExecute(ctx context.Context, raw, userMessage string) (*schema.ExecuteDecision, Outcome) {
	var decision schema.ExecuteDecision
	outcome := d.decodeInto(ctx, raw, &decision)
	if outcome != OutcomeFallback {
		return &decision, outcome
	}
	if rules.IsDeletionRequest(userMessage) {
		return &schema.ExecuteDecision{
			Actions: []schema.ProposedAction{{
				Tool: "delete_event",
				Args: map[string]interface{}{"event_id": "recent"},
			}},
			Reasoning: "execution output unreadable, honoring explicit deletion request",
		}, outcome
	}
	return nil, outcome
}
