package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph/internal/parse"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/fence"
	"github.com/aretw0/agentgraph/pkg/ports"
)

var errEmptyResponse = errors.New("model returned no response")

// BuildFormatPrompt returns the message asking the model to map userInput onto inputKeys.
// The instructions are trusted; userInput is appended as a USER INPUT block.
func BuildFormatPrompt(userInput string, inputKeys []string, agentDescription string) string {
	var b strings.Builder
	b.WriteString("Convert the user's request into a JSON object for the agent described below.\n")
	if agentDescription != "" {
		fmt.Fprintf(&b, "Agent: %s\n", agentDescription)
	}
	fmt.Fprintf(&b, "Required keys: %s\n", strings.Join(inputKeys, ", "))
	b.WriteString("Respond with the JSON object only. Use null for values the request does not provide.")

	return fence.Fence(b.String(), fence.UserInput, []fence.Field{{Key: "request", Value: userInput}})
}

// FormatNaturalLanguage asks llm to turn free-form user text into values for inputKeys.
// Keys the model omits are absent from the result; extra keys are dropped.
func FormatNaturalLanguage(ctx context.Context, llm ports.LLM, userInput string, inputKeys []string, agentDescription string) (map[string]any, error) {
	clean, err := SanitizeInput(userInput)
	if err != nil {
		return nil, err
	}
	if len(inputKeys) == 0 {
		return map[string]any{}, nil
	}

	prompt := BuildFormatPrompt(clean, inputKeys, agentDescription)
	resp, err := llm.Complete(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, "")
	if err != nil {
		return nil, fmt.Errorf("failed to format input: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("failed to format input: %w", errEmptyResponse)
	}

	obj, err := parse.JSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to format input: %w", err)
	}

	out := make(map[string]any, len(inputKeys))
	for _, key := range inputKeys {
		if v, ok := obj[key]; ok && v != nil {
			out[key] = v
		}
	}
	return out, nil
}
