package captcha

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
)

// VisionSolver asks a multimodal chat model to read the challenge image.
type VisionSolver struct {
	Model  llms.Model
	Prompt string
}

func NewVisionSolver(model llms.Model, prompt string) *VisionSolver {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &VisionSolver{Model: model, Prompt: prompt}
}

func (s *VisionSolver) Solve(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrUnsolved)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(s.Prompt)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(http.DetectContentType(image), image),
			},
		},
	}

	resp, err := s.Model.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithMaxTokens(20),
	)
	if err != nil {
		return "", fmt.Errorf("%w: model call failed: %v", ErrUnsolved, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", ErrUnsolved)
	}

	reply := resp.Choices[0].Content
	code, ok := ExtractCode(reply)
	if !ok {
		return "", fmt.Errorf("%w: model replied %q", ErrUnsolved, reply)
	}
	return code, nil
}
