package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-assistant-be/internal/constant"
	"ai-assistant-be/internal/entity"
	"ai-assistant-be/internal/repository/contract"
	"ai-assistant-be/pkg/agent/decode"
	"ai-assistant-be/pkg/agent/orchestrator"
	"ai-assistant-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService listens for completed turns and distills durable user
// facts out of them in the background, off the request path.
type consumerService struct {
	pubSub  *gochannel.GoChannel
	gateway orchestrator.LLMGateway
	model   string
	facts   contract.UserFactRepository
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	gateway orchestrator.LLMGateway,
	model string,
	facts contract.UserFactRepository,
) IConsumerService {
	return &consumerService{
		pubSub:  pubSub,
		gateway: gateway,
		model:   model,
		facts:   facts,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, constant.TurnCompletedTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload turnEventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[CONSUMER] unreadable turn payload: %v", err)
		return
	}
	if len(payload.UserMessage) < 20 {
		return
	}

	distillCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	facts, err := cs.distillFacts(distillCtx, payload.UserMessage)
	if err != nil {
		log.Printf("[CONSUMER] fact distillation failed: %v", err)
		return
	}

	for _, fact := range facts {
		if err := cs.facts.Create(ctx, &entity.UserFact{
			SessionId: payload.SessionId,
			Fact:      fact,
		}); err != nil {
			log.Printf("[CONSUMER] failed to store fact: %v", err)
		}
	}
	if len(facts) > 0 {
		log.Printf("[CONSUMER] stored %d user facts for session %s", len(facts), payload.SessionId)
	}
}

// distillFacts extracts stable, reusable facts about the user from one
// message. Transient details (a single meeting, one-off requests) are not
// facts.
func (cs *consumerService) distillFacts(ctx context.Context, userMessage string) ([]string, error) {
	var b strings.Builder
	b.WriteString("Extract long-lived facts about the user from the message below: preferences, recurring commitments, names of their teams or calendars.\n")
	b.WriteString("Ignore one-off requests and anything tied to a single date.\n")
	b.WriteString(`Respond with ONLY this JSON: {"facts": ["fact", ...]}. Use an empty list when nothing qualifies.` + "\n\n")
	b.WriteString("MESSAGE:\n")
	b.WriteString(userMessage)

	raw, err := cs.gateway.Invoke(ctx, b.String(), llm.InvokeOptions{
		Model:      cs.model,
		Structured: true,
	})
	if err != nil {
		return nil, err
	}

	candidate := decode.ExtractJSON(raw)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON in distillation output")
	}
	var parsed struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, err
	}
	var facts []string
	for _, fact := range parsed.Facts {
		fact = strings.TrimSpace(fact)
		if fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}
