package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/internal/dto"
	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/pkg/logger"
	"ai-assistant-be/internal/repository/contract"
	"ai-assistant-be/internal/repository/memory"
	"ai-assistant-be/pkg/agent/orchestrator"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/events"
	pktNats "ai-assistant-be/pkg/nats"
	"ai-assistant-be/pkg/tools"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type IAssistantService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	ServiceStatus(ctx context.Context) *dto.ServiceStatusResponse
	Status(ctx context.Context, sessionId string) (*dto.SessionStatusResponse, error)
	History(ctx context.Context, sessionId string) (*dto.HistoryResponse, error)
}

// ProviderHealth checks that the language model backend is reachable.
type ProviderHealth interface {
	Ping(ctx context.Context) error
}

// TurnRunner is the pipeline surface the service drives.
type TurnRunner interface {
	RunTurn(ctx context.Context, st *state.DialogueState, userMessage string) (orchestrator.TurnResult, error)
}

// ClientInvalidator drops cached model clients before a turn retry.
type ClientInvalidator interface {
	Invalidate()
}

type turnEventPayload struct {
	SessionId        string `json:"session_id"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
}

// persistedScratch is the durable subset of DialogueState, enough to resume
// an in-flight confirmation workflow after a restart.
type persistedScratch struct {
	WorkflowStep           string                     `json:"workflow_step"`
	Language               string                     `json:"language"`
	NeedsConfirmation      bool                       `json:"needs_confirmation"`
	ConfirmationID         string                     `json:"confirmation_id,omitempty"`
	PendingCandidateEvents []schema.ActionItem        `json:"pending_candidate_events,omitempty"`
	RawSourceText          string                     `json:"raw_source_text,omitempty"`
	RegistrationResults    []state.RegistrationResult `json:"registration_results,omitempty"`
}

type assistantService struct {
	runner       TurnRunner
	clients      ClientInvalidator
	scratch      *memory.ScratchRepository
	sessions     contract.AssistantSessionRepository
	messages     contract.ChatMessageRepository
	rdb          *redis.Client
	pubSub       *gochannel.GoChannel
	natsPub      *pktNats.Publisher
	health       ProviderHealth
	providerName string
	sysLogger    logger.ILogger
	turnTimeout  time.Duration
}

func NewAssistantService(
	runner TurnRunner,
	clients ClientInvalidator,
	scratch *memory.ScratchRepository,
	sessions contract.AssistantSessionRepository,
	messages contract.ChatMessageRepository,
	rdb *redis.Client,
	pubSub *gochannel.GoChannel,
	natsPub *pktNats.Publisher,
	health ProviderHealth,
	providerName string,
	sysLogger logger.ILogger,
	turnTimeout time.Duration,
) IAssistantService {
	if turnTimeout <= 0 {
		turnTimeout = 300 * time.Second
	}
	return &assistantService{
		runner:       runner,
		clients:      clients,
		scratch:      scratch,
		sessions:     sessions,
		messages:     messages,
		rdb:          rdb,
		pubSub:       pubSub,
		natsPub:      natsPub,
		health:       health,
		providerName: providerName,
		sysLogger:    sysLogger,
		turnTimeout:  turnTimeout,
	}
}

func (s *assistantService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	release, acquired := s.acquireTurnLock(ctx, sessionId)
	if !acquired {
		return &dto.ChatResponse{
			SessionId: sessionId,
			Error:     "a previous request for this session is still being processed",
		}, nil
	}
	defer release()

	st := s.loadState(ctx, sessionId)
	snapshot := st.Clone()
	startLen := len(st.Messages)
	startRegistrations := len(st.RegistrationResults)
	started := time.Now()

	result, err := s.runTurnOnce(ctx, st, req.Message)
	if err != nil && tools.IsTransient(err) {
		s.sysLogger.Warn("assistant", "transient turn failure, invalidating model clients and retrying once", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		s.clients.Invalidate()
		st = snapshot.Clone()
		startLen = len(st.Messages)
		startRegistrations = len(st.RegistrationResults)
		result, err = s.runTurnOnce(ctx, st, req.Message)
	}
	if err != nil {
		s.sysLogger.Error("assistant", "turn failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		// Keep the pre-turn state so the failed attempt leaves no trace.
		s.scratch.Save(snapshot)
		message := "The request could not be completed. Please try again."
		if snapshot.Language == "ko" {
			message = "요청을 처리하지 못했습니다. 잠시 후 다시 시도해 주세요."
		}
		return &dto.ChatResponse{
			Response:  message,
			SessionId: sessionId,
			Error:     err.Error(),
		}, nil
	}

	s.persistTurn(ctx, st, startLen)
	s.publishTurnEvents(st, req.Message, result, startRegistrations, time.Since(started))

	return &dto.ChatResponse{
		Response:          result.AssistantMessage,
		Mode:              result.Mode,
		NeedsConfirmation: result.NeedsConfirmation,
		SessionId:         sessionId,
		ConfirmationId:    result.ConfirmationID,
	}, nil
}

func (s *assistantService) runTurnOnce(ctx context.Context, st *state.DialogueState, userMessage string) (orchestrator.TurnResult, error) {
	turnCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()
	return s.runner.RunTurn(turnCtx, st, userMessage)
}

// acquireTurnLock serializes turns per session via redis SET NX. When redis
// is unreachable the service proceeds unlocked rather than going down.
func (s *assistantService) acquireTurnLock(ctx context.Context, sessionId string) (func(), bool) {
	if s.rdb == nil {
		return func() {}, true
	}
	key := constant.SessionLockPrefix + sessionId
	ok, err := s.rdb.SetNX(ctx, key, "1", s.turnTimeout+10*time.Second).Result()
	if err != nil {
		s.sysLogger.Warn("assistant", "redis lock unavailable, proceeding without serialization", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		if err := s.rdb.Del(context.Background(), key).Err(); err != nil {
			s.sysLogger.Warn("assistant", "failed to release turn lock", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}, true
}

// loadState rehydrates the dialogue: the in-memory scratch first, then the
// durable session row plus persisted messages, then a fresh state.
func (s *assistantService) loadState(ctx context.Context, sessionId string) *state.DialogueState {
	if st, found := s.scratch.Get(sessionId); found {
		return st
	}

	st := state.New(sessionId)
	session, err := s.sessions.FindById(ctx, sessionId)
	if err != nil {
		s.sysLogger.Warn("assistant", "failed to load durable session", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return st
	}
	if session == nil {
		return st
	}

	var scratch persistedScratch
	if err := json.Unmarshal(session.Scratch, &scratch); err == nil {
		st.WorkflowStep = scratch.WorkflowStep
		st.Language = scratch.Language
		st.NeedsConfirmation = scratch.NeedsConfirmation
		st.ConfirmationID = scratch.ConfirmationID
		st.PendingCandidateEvents = scratch.PendingCandidateEvents
		st.RawSourceText = scratch.RawSourceText
		st.RegistrationResults = scratch.RegistrationResults
	}
	if st.WorkflowStep == "" {
		st.WorkflowStep = state.StepNone
	}

	rows, err := s.messages.FindBySession(ctx, sessionId, 50)
	if err != nil {
		s.sysLogger.Warn("assistant", "failed to load message history", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return st
	}
	for _, row := range rows {
		st.Append(state.Message{Role: row.Role, Content: row.Content, ToolName: row.ToolName})
	}
	return st
}

// persistTurn saves the scratch, the durable session snapshot and every
// message this turn appended. Persistence failures are logged, not surfaced;
// the user already has their answer.
func (s *assistantService) persistTurn(ctx context.Context, st *state.DialogueState, startLen int) {
	s.scratch.Save(st)

	scratch, err := json.Marshal(persistedScratch{
		WorkflowStep:           st.WorkflowStep,
		Language:               st.Language,
		NeedsConfirmation:      st.NeedsConfirmation,
		ConfirmationID:         st.ConfirmationID,
		PendingCandidateEvents: st.PendingCandidateEvents,
		RawSourceText:          st.RawSourceText,
		RegistrationResults:    st.RegistrationResults,
	})
	if err == nil {
		err = s.sessions.Upsert(ctx, &entity.AssistantSession{
			Id:           st.SessionID,
			WorkflowStep: st.WorkflowStep,
			Language:     st.Language,
			Scratch:      scratch,
		})
	}
	if err != nil {
		s.sysLogger.Warn("assistant", "failed to persist session snapshot", map[string]interface{}{
			"session_id": st.SessionID,
			"error":      err.Error(),
		})
	}

	for _, msg := range st.Messages[startLen:] {
		if err := s.messages.Create(ctx, &entity.ChatMessage{
			SessionId: st.SessionID,
			Role:      msg.Role,
			Content:   msg.Content,
			ToolName:  msg.ToolName,
		}); err != nil {
			s.sysLogger.Warn("assistant", "failed to persist message", map[string]interface{}{
				"session_id": st.SessionID,
				"error":      err.Error(),
			})
		}
	}
}

// publishTurnEvents emits the in-process turn-completed event and the
// best-effort NATS audit events.
func (s *assistantService) publishTurnEvents(st *state.DialogueState, userMessage string, result orchestrator.TurnResult, startRegistrations int, elapsed time.Duration) {
	if s.pubSub != nil {
		payload, err := json.Marshal(turnEventPayload{
			SessionId:        st.SessionID,
			UserMessage:      userMessage,
			AssistantMessage: result.AssistantMessage,
		})
		if err == nil {
			msg := message.NewMessage(watermill.NewUUID(), payload)
			if err := s.pubSub.Publish(constant.TurnCompletedTopic, msg); err != nil {
				s.sysLogger.Warn("assistant", "failed to publish turn event", map[string]interface{}{
					"session_id": st.SessionID,
					"error":      err.Error(),
				})
			}
		}
	}

	if s.natsPub == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.natsPub.Publish(auditCtx, events.NewTurnCompleted(st.SessionID, result.Mode, result.NeedsConfirmation, elapsed.Milliseconds())); err != nil {
		s.sysLogger.Warn("assistant", "failed to publish turn audit event", map[string]interface{}{
			"session_id": st.SessionID,
			"error":      err.Error(),
		})
	}

	newRegistrations := st.RegistrationResults[startRegistrations:]
	if len(newRegistrations) == 0 {
		return
	}
	created, skipped, failed := 0, 0, 0
	for _, r := range newRegistrations {
		switch r.Status {
		case "success":
			created++
		case "skipped":
			skipped++
		default:
			failed++
		}
	}
	if err := s.natsPub.Publish(auditCtx, events.NewEventsRegistered(st.SessionID, created, skipped, failed)); err != nil {
		s.sysLogger.Warn("assistant", "failed to publish registration audit event", map[string]interface{}{
			"session_id": st.SessionID,
			"error":      err.Error(),
		})
	}
}

// ServiceStatus reports whether the model backend answers, so operators can
// tell a dead provider apart from a slow one.
func (s *assistantService) ServiceStatus(ctx context.Context) *dto.ServiceStatusResponse {
	res := &dto.ServiceStatusResponse{
		Status:   "ok",
		Provider: s.providerName,
	}
	if s.health == nil {
		res.Status = "degraded"
		res.ProviderError = "no provider health check configured"
		return res
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.health.Ping(pingCtx); err != nil {
		res.Status = "degraded"
		res.ProviderError = err.Error()
		return res
	}
	res.ProviderReachable = true
	return res
}

func (s *assistantService) Status(ctx context.Context, sessionId string) (*dto.SessionStatusResponse, error) {
	st := s.loadState(ctx, sessionId)
	return &dto.SessionStatusResponse{
		SessionId:      st.SessionID,
		WorkflowStep:   st.WorkflowStep,
		PendingEvents:  len(st.PendingCandidateEvents),
		ConfirmationId: st.ConfirmationID,
		Language:       st.Language,
	}, nil
}

func (s *assistantService) History(ctx context.Context, sessionId string) (*dto.HistoryResponse, error) {
	rows, err := s.messages.FindBySession(ctx, sessionId, 100)
	if err != nil {
		return nil, err
	}
	res := &dto.HistoryResponse{SessionId: sessionId}
	for _, row := range rows {
		res.Messages = append(res.Messages, dto.HistoryMessage{
			Role:     row.Role,
			Content:  row.Content,
			ToolName: row.ToolName,
		})
	}
	return res, nil
}
