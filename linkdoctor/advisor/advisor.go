package advisor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/valyala/fasttemplate"

	"github.com/spance/linkdoctor-go/constants"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
	"github.com/spance/linkdoctor-go/utils"
)

// Advisor turns a diagnostics report into a prose explanation through an
// OpenAI-compatible chat model.
type Advisor struct {
	config *definitions.ModelConfig
	client *openai.Client
}

func NewAdvisor(cfg *definitions.ModelConfig) *Advisor {
	if cfg == nil {
		cfg = &definitions.ModelConfig{}
	}
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}

	return &Advisor{
		config: cfg,
		client: openai.NewClientWithConfig(openaiCfg),
	}
}

// Explain streams the model's reading of the report to stdout as it
// arrives and returns the full text once the stream ends.
func (c *Advisor) Explain(ctx context.Context, diag *definitions.VerificationDiagnostics) (string, error) {
	systemPrompt := fasttemplate.ExecuteString(constants.AdvisorSystemPrompt, "{{", "}}", map[string]interface{}{
		"datetime": time.Now().Format("2006-01-02, Monday"),
	})

	userPrompt := fmt.Sprintf("Diagnostics report for %s:\n```json\n%s\n```",
		diag.PackageName, utils.JsonIndent(diag))

	req := openai.ChatCompletionRequest{
		Model: c.config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxCompletionTokens: c.config.MaxTokens,
		Temperature:         c.config.Temperature,
		Stream:              true,
	}

	started := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create completion stream: %w", err)
	}
	defer stream.Close()

	var (
		content    strings.Builder
		firstToken time.Duration
	)

	for {
		resp, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return content.String(), fmt.Errorf("stream error: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		if firstToken == 0 {
			firstToken = time.Since(started)
		}
		content.WriteString(delta)
		fmt.Print(delta)
	}
	fmt.Println()

	log.Debug().
		Dur("first_token", firstToken).
		Dur("total", time.Since(started)).
		Msg("[Explain] stream done")

	return content.String(), nil
}
