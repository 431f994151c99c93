package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/mindchain/mindmate/backend/internal/config"
	"github.com/mindchain/mindmate/backend/internal/metrics"
)

// ArkTextClient generates text through an eino chain over an Ark chat model.
type ArkTextClient struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	metrics *metrics.Metrics
}

// NewArkTextClient creates the Ark model from cfg and compiles the chain.
func NewArkTextClient(ctx context.Context, cfg config.ArkConfig, m *metrics.Metrics) (*ArkTextClient, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChainTextClient(ctx, chatModel, m)
}

// NewChainTextClient compiles the prompt chain around any eino chat model.
func NewChainTextClient(ctx context.Context, chatModel model.BaseChatModel, m *metrics.Metrics) (*ArkTextClient, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ArkTextClient{chain: runnable, metrics: m}, nil
}

func (c *ArkTextClient) GenerateText(ctx context.Context, req TextRequest) (reply string, err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveRemoteCall(metrics.CapabilityText, started, err) }()

	history := make([]*schema.Message, 0, len(req.History))
	for _, m := range req.History {
		role, ok := historyRole(m)
		if !ok || m.Content == "" {
			continue
		}
		if role == "user" {
			history = append(history, schema.UserMessage(m.Content))
		} else {
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}

	resp, err := c.chain.Invoke(ctx, map[string]any{
		"system":  req.System,
		"history": history,
		"query":   req.Prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	reply = strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}
