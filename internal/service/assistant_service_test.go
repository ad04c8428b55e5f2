package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-assistant-be/internal/dto"
	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/memory"
	"ai-assistant-be/pkg/agent/orchestrator"
	"ai-assistant-be/pkg/agent/schema"
	"ai-assistant-be/pkg/agent/state"
	"ai-assistant-be/pkg/tools"
)

type fakeRunner struct {
	results   []orchestrator.TurnResult
	errs      []error
	calls     int
	states    []*state.DialogueState
	entryLens []int
}

func (r *fakeRunner) RunTurn(ctx context.Context, st *state.DialogueState, userMessage string) (orchestrator.TurnResult, error) {
	idx := r.calls
	r.calls++
	r.states = append(r.states, st)
	r.entryLens = append(r.entryLens, len(st.Messages))
	var err error
	if idx < len(r.errs) {
		err = r.errs[idx]
	}
	var result orchestrator.TurnResult
	if idx < len(r.results) {
		result = r.results[idx]
	}
	if err == nil {
		st.AppendUser(userMessage)
		st.AppendAssistant(result.AssistantMessage)
	}
	return result, err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

type fakeSessionRepo struct {
	rows    map[string]*entity.AssistantSession
	upserts int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: map[string]*entity.AssistantSession{}}
}

func (r *fakeSessionRepo) Upsert(ctx context.Context, session *entity.AssistantSession) error {
	r.upserts++
	r.rows[session.Id] = session
	return nil
}

func (r *fakeSessionRepo) FindById(ctx context.Context, id string) (*entity.AssistantSession, error) {
	return r.rows[id], nil
}

type fakeMessageRepo struct {
	rows []*entity.ChatMessage
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *entity.ChatMessage) error {
	r.rows = append(r.rows, msg)
	return nil
}

func (r *fakeMessageRepo) FindBySession(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error) {
	var out []*entity.ChatMessage
	for _, row := range r.rows {
		if row.SessionId == sessionId {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

type fakeHealth struct {
	err   error
	pings int
}

func (h *fakeHealth) Ping(ctx context.Context) error {
	h.pings++
	return h.err
}

type serviceFixture struct {
	svc         IAssistantService
	runner      *fakeRunner
	invalidator *fakeInvalidator
	scratch     *memory.ScratchRepository
	sessions    *fakeSessionRepo
	messages    *fakeMessageRepo
	health      *fakeHealth
}

func newFixture(runner *fakeRunner) *serviceFixture {
	f := &serviceFixture{
		runner:      runner,
		invalidator: &fakeInvalidator{},
		scratch:     memory.NewScratchRepository(),
		sessions:    newFakeSessionRepo(),
		messages:    &fakeMessageRepo{},
		health:      &fakeHealth{},
	}
	f.svc = NewAssistantService(
		runner, f.invalidator, f.scratch, f.sessions, f.messages,
		nil, nil, nil, f.health, "ollama", noopLogger{}, 5*time.Second,
	)
	return f
}

func TestChatSuccessfulTurnPersists(t *testing.T) {
	runner := &fakeRunner{results: []orchestrator.TurnResult{{
		AssistantMessage: "내일은 팀 회의가 있습니다.",
		Mode:             schema.ModePlan,
	}}}
	f := newFixture(runner)

	res, err := f.svc.Chat(context.Background(), &dto.ChatRequest{Message: "내일 일정 알려줘"})
	require.NoError(t, err)
	assert.Equal(t, "내일은 팀 회의가 있습니다.", res.Response)
	assert.Equal(t, schema.ModePlan, res.Mode)
	assert.NotEmpty(t, res.SessionId, "a session id must be minted when none is given")
	assert.Empty(t, res.Error)

	// both turn messages persisted, durable snapshot written
	assert.Len(t, f.messages.rows, 2)
	assert.Equal(t, 1, f.sessions.upserts)
	_, found := f.scratch.Get(res.SessionId)
	assert.True(t, found, "scratch state missing after a successful turn")
}

func TestChatTransientFailureRetriedOnce(t *testing.T) {
	transient := tools.MarkTransient(errors.New("model connection reset"))
	runner := &fakeRunner{
		errs: []error{transient, nil},
		results: []orchestrator.TurnResult{
			{},
			{AssistantMessage: "done", Mode: schema.ModePlan},
		},
	}
	f := newFixture(runner)

	res, err := f.svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello", SessionId: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Response)
	assert.Empty(t, res.Error)
	assert.Equal(t, 2, runner.calls, "exactly one retry")
	assert.Equal(t, 1, f.invalidator.calls, "client cache must be invalidated before the retry")

	// the retry must start from the pre-turn snapshot, not the dirty state
	require.Len(t, runner.states, 2)
	assert.NotSame(t, runner.states[0], runner.states[1])
	assert.Zero(t, runner.entryLens[1], "retry state carries residue from the failed attempt")
}

func TestChatDefinitiveFailureNotRetried(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("context canceled")}}
	f := newFixture(runner)

	res, err := f.svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello", SessionId: "s1"})
	require.NoError(t, err, "turn failures surface in the response body, not as transport errors")
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 0, f.invalidator.calls)
	assert.NotEmpty(t, res.Error)
	assert.NotEmpty(t, res.Response, "the user still gets a readable failure message")
	assert.Empty(t, f.messages.rows, "failed turns must not be persisted")
}

func TestChatTransientFailureTwiceKeepsSnapshot(t *testing.T) {
	transient := tools.MarkTransient(errors.New("upstream timeout"))
	runner := &fakeRunner{errs: []error{transient, transient}}
	f := newFixture(runner)

	// seed an existing conversation so we can see the snapshot survive
	seeded := state.New("s1")
	seeded.AppendUser("이전 질문")
	seeded.AppendAssistant("이전 답변")
	seeded.Language = "ko"
	f.scratch.Save(seeded)

	res, err := f.svc.Chat(context.Background(), &dto.ChatRequest{Message: "다음 질문", SessionId: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
	assert.NotEmpty(t, res.Error)
	assert.Contains(t, res.Response, "요청을 처리하지 못했습니다")

	restored, found := f.scratch.Get("s1")
	require.True(t, found)
	assert.Len(t, restored.Messages, 2, "failed attempts must leave no trace in the saved state")
}

func TestChatRehydratesDurableSession(t *testing.T) {
	runner := &fakeRunner{results: []orchestrator.TurnResult{{AssistantMessage: "ok"}}}
	f := newFixture(runner)

	f.sessions.rows["s1"] = &entity.AssistantSession{
		Id:           "s1",
		WorkflowStep: state.StepReview,
		Language:     "ko",
		Scratch: []byte(fmt.Sprintf(`{
			"workflow_step": %q,
			"language": "ko",
			"needs_confirmation": true,
			"confirmation_id": "c-123",
			"pending_candidate_events": [{"task": "디자인 리뷰", "is_calendar_event": true}]
		}`, state.StepReview)),
	}
	f.messages.rows = []*entity.ChatMessage{
		{SessionId: "s1", Role: state.RoleUser, Content: "회의록 정리해줘"},
		{SessionId: "s1", Role: state.RoleAssistant, Content: "일정 후보를 찾았습니다. 등록할까요?"},
	}

	_, err := f.svc.Chat(context.Background(), &dto.ChatRequest{Message: "등록 진행해줘", SessionId: "s1"})
	require.NoError(t, err)

	require.Len(t, runner.states, 1)
	loaded := runner.states[0]
	assert.Equal(t, state.StepReview, loaded.WorkflowStep)
	assert.Equal(t, "c-123", loaded.ConfirmationID)
	require.Len(t, loaded.PendingCandidateEvents, 1)
	assert.Equal(t, "디자인 리뷰", loaded.PendingCandidateEvents[0].Task)
	// the two persisted messages were replayed before the new turn ran
	assert.GreaterOrEqual(t, len(loaded.Messages), 2)
}

func TestServiceStatusReportsProviderReachability(t *testing.T) {
	f := newFixture(&fakeRunner{})

	res := f.svc.ServiceStatus(context.Background())
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "ollama", res.Provider)
	assert.True(t, res.ProviderReachable)
	assert.Equal(t, 1, f.health.pings)

	f.health.err = errors.New("connection refused")
	res = f.svc.ServiceStatus(context.Background())
	assert.Equal(t, "degraded", res.Status)
	assert.False(t, res.ProviderReachable)
	assert.Contains(t, res.ProviderError, "connection refused")
}

func TestStatusReportsWorkflow(t *testing.T) {
	f := newFixture(&fakeRunner{})
	st := state.New("s1")
	st.WorkflowStep = state.StepReview
	st.ConfirmationID = "c-9"
	st.PendingCandidateEvents = []schema.ActionItem{{Task: "a"}, {Task: "b"}}
	f.scratch.Save(st)

	res, err := f.svc.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, state.StepReview, res.WorkflowStep)
	assert.Equal(t, 2, res.PendingEvents)
	assert.Equal(t, "c-9", res.ConfirmationId)
}

func TestHistoryReturnsPersistedMessages(t *testing.T) {
	f := newFixture(&fakeRunner{})
	f.messages.rows = []*entity.ChatMessage{
		{SessionId: "s1", Role: state.RoleUser, Content: "안녕"},
		{SessionId: "s1", Role: state.RoleAssistant, Content: "안녕하세요"},
		{SessionId: "other", Role: state.RoleUser, Content: "x"},
	}

	res, err := f.svc.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "안녕", res.Messages[0].Content)
}
