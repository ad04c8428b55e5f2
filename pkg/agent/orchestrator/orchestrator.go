// Package orchestrator runs one conversational turn through the
// router, planner, executor and tool runner stages.
package orchestrator

import (
	"context"
	"log"

	"github.com/google/uuid"

	"ai-assistant-be/pkg/agent/dates"
	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/guardrail"
	"ai-assistant-be/pkg/agent/rules"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/llm"
	"ai-assistant-be/pkg/tools"
)

// LLMGateway is the model-calling surface the pipeline depends on.
type LLMGateway interface {
	Invoke(ctx context.Context, prompt string, opts llm.InvokeOptions) (string, error)
}

// ToolRegistry dispatches tool calls and describes the available tools.
type ToolRegistry interface {
	List() []tools.Descriptor
	Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// RecencyStore records created entities so follow-up references like "that
// event" can be resolved.
type RecencyStore interface {
	Add(ctx context.Context, entity state.RecentEntity) error
	Recent(ctx context.Context, sessionID string, limit int) ([]state.RecentEntity, error)
}

// ProfileStore supplies long-lived user facts for prompts. Implementations
// may return nothing; the pipeline treats facts as optional color.
type ProfileStore interface {
	Facts(ctx context.Context, sessionID string) ([]string, error)
}

// CalendarDirectory resolves calendar display names to ids.
type CalendarDirectory interface {
	NameToID(ctx context.Context) (map[string]string, string, error)
}

// Config selects models and workflow limits for the pipeline.
type Config struct {
	RouterModel          string
	SimpleModel          string
	ComplexModel         string
	FallbackCalendarName string
	MaxToolHops          int
}

// TurnResult is what one completed turn hands back to the transport layer.
type TurnResult struct {
	AssistantMessage  string
	Mode              string
	NeedsConfirmation bool
	ConfirmationID    string
}

// Orchestrator wires the pipeline stages together. It is stateless across
// turns; all conversation state lives in the DialogueState it is handed.
type Orchestrator struct {
	gateway    LLMGateway
	registry   ToolRegistry
	recency    RecencyStore
	profile    ProfileStore
	directory  CalendarDirectory
	guardrails *guardrail.Engine
	decoder    *decode.Decoder
	clock      dates.Clock
	config     Config
	logger     *log.Logger
}

func New(
	gateway LLMGateway,
	registry ToolRegistry,
	recency RecencyStore,
	profile ProfileStore,
	directory CalendarDirectory,
	clock dates.Clock,
	config Config,
	logger *log.Logger,
) *Orchestrator {
	if config.MaxToolHops <= 0 {
		config.MaxToolHops = 4
	}
	o := &Orchestrator{
		gateway:    gateway,
		registry:   registry,
		recency:    recency,
		profile:    profile,
		directory:  directory,
		guardrails: guardrail.NewEngine(logger),
		clock:      clock,
		config:     config,
		logger:     logger,
	}
	o.decoder = decode.NewDecoder(o.repairJSON, logger)
	return o
}

// repairJSON asks the simple model to rewrite broken output as valid JSON,
// telling it what failed on the first parse.
func (o *Orchestrator) repairJSON(ctx context.Context, raw string, cause error) (string, error) {
	return o.gateway.Invoke(ctx, buildRepairPrompt(raw, cause), llm.InvokeOptions{
		Model:      o.config.SimpleModel,
		Structured: true,
	})
}

// RunTurn drives one user message through the pipeline, mutating st as it
// goes. The returned error is reserved for transient failures the caller may
// retry; user-visible problems come back as assistant messages.
func (o *Orchestrator) RunTurn(ctx context.Context, st *state.DialogueState, userMessage string) (TurnResult, error) {
	st.AppendUser(userMessage)
	st.Language = rules.DetectLanguage(userMessage)
	if rules.LooksLikeMeetingNotes(userMessage) {
		st.RawSourceText = userMessage
	}

	routerDecision := o.route(ctx, userMessage)
	st.RouterMode = routerDecision.Mode
	if o.logger != nil {
		o.logger.Printf("[ROUTER] mode=%s reason=%s", routerDecision.Mode, routerDecision.Reasoning)
	}

	// Every routed turn goes through the planner, including conversational
	// "answer" turns: a plan-mode reply is the direct answer, and the
	// decode/guardrail path stays available when the router misjudged.
	complex := routerDecision.Mode == schema.RouterComplex
	var priorIntents []string

	for hop := 0; hop < o.config.MaxToolHops; hop++ {
		plan, forceSummarize, err := o.plan(ctx, st, complex, priorIntents)
		if err != nil {
			return TurnResult{}, err
		}
		if forceSummarize {
			return o.summarizeAndFinish(ctx, st)
		}
		st.Mode = plan.Mode
		if plan.Mode == schema.ModePlan {
			return o.finishTurn(st, plan), nil
		}

		priorIntents = append(priorIntents, plan.IntentDescription)
		st.IntentSummary = plan.IntentDescription
		decision, err := o.execute(ctx, st, plan, complex, priorIntents)
		if err != nil {
			return TurnResult{}, err
		}
		if decision == nil {
			return o.summarizeAndFinish(ctx, st)
		}
		if err := o.runTools(ctx, st, decision); err != nil {
			return TurnResult{}, err
		}
	}
	return o.summarizeAndFinish(ctx, st)
}

// finishTurn appends the assistant reply and materializes the confirmation
// handle when the review workflow asked for one.
func (o *Orchestrator) finishTurn(st *state.DialogueState, plan schema.PlanDecision) TurnResult {
	st.NeedsConfirmation = plan.NeedsConfirmation
	if plan.NeedsConfirmation && st.ConfirmationID == "" {
		st.ConfirmationID = uuid.New().String()
	}
	if !plan.NeedsConfirmation {
		st.ConfirmationID = ""
	}
	st.AppendAssistant(plan.AssistantMessage)
	return TurnResult{
		AssistantMessage:  plan.AssistantMessage,
		Mode:              st.Mode,
		NeedsConfirmation: plan.NeedsConfirmation,
		ConfirmationID:    st.ConfirmationID,
	}
}

// summarizeAndFinish produces the closing reply from whatever tool results
// the turn accumulated. It is the landing path for exhausted hops, broken
// loops and unrecoverable executor output.
func (o *Orchestrator) summarizeAndFinish(ctx context.Context, st *state.DialogueState) (TurnResult, error) {
	st.Mode = schema.ModePlan
	reply := o.summarizeResults(ctx, st)
	st.AppendAssistant(reply)
	return TurnResult{AssistantMessage: reply, Mode: st.Mode}, nil
}

func (o *Orchestrator) summarizeResults(ctx context.Context, st *state.DialogueState) string {
	toolResult := ""
	toolName := ""
	if msg := st.LastToolMessage(); msg != nil {
		toolResult = msg.Content
		toolName = msg.ToolName
	}
	reply, err := o.gateway.Invoke(ctx, buildSummarizePrompt(st, toolName, toolResult), llm.InvokeOptions{
		Model: o.config.SimpleModel,
	})
	if err != nil || reply == "" {
		if o.logger != nil && err != nil {
			o.logger.Printf("[PLANNER] summarization failed: %v", err)
		}
		if st.Language == "ko" {
			return "요청하신 작업을 처리했지만 결과를 정리하는 데 문제가 있었습니다."
		}
		return "The request was handled, but the result could not be summarized."
	}
	return reply
}

func (o *Orchestrator) userFacts(ctx context.Context, st *state.DialogueState) []string {
	if o.profile == nil {
		return nil
	}
	facts, err := o.profile.Facts(ctx, st.SessionID)
	if err != nil {
		if o.logger != nil {
			o.logger.Printf("[PROFILE] loading facts failed: %v", err)
		}
		return nil
	}
	// Calendar-only turns get no travel facts.
	message := st.LastUserMessage()
	if !rules.IsCalendarQuery(message) || rules.IsTravelQuery(message) {
		return facts
	}
	kept := make([]string, 0, len(facts))
	for _, f := range facts {
		if rules.IsTravelFact(f) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
