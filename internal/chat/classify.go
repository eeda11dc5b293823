package chat

import (
	"context"
	"fmt"

	"github.com/bancoq/bancoq/internal/llm/prompts"
	"github.com/bancoq/bancoq/internal/model"
)

// classify maps one utterance to an intent using the generation service.
// Any failure here is recoverable: the orchestrator treats it as plain chat.
func (a *Assistant) classify(ctx context.Context, utterance string, hasPending bool) (model.IntentResult, error) {
	raw, err := a.gen.Generate(ctx, prompts.Classification(utterance, hasPending))
	if err != nil {
		return model.IntentResult{}, fmt.Errorf("classification call: %w", err)
	}
	result, err := parseIntent(raw)
	if err != nil {
		return model.IntentResult{}, fmt.Errorf("classification response: %w", err)
	}
	return result, nil
}
