// Package sketch turns hand-drawn sketches into text descriptions via a
// vision-capable chat-completion backend.
package sketch

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gemsmith/internal/config"
	"gemsmith/internal/errors"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
)

// systemInstruction forces the model to commit to a concrete jewelry
// description. The model must never refuse and never mention that the
// source was a sketch.
const systemInstruction = "You are a jewelry design expert. The user shows you a drawing of a " +
	"piece of jewelry. Identify the jewelry type, metal, stones, and setting, and describe the " +
	"piece in one detailed sentence suitable for a product caption. Always produce a best-guess " +
	"answer even if the drawing is rough or ambiguous. Never refuse, never ask questions, and " +
	"never mention a sketch, drawing, or image in your answer."

// Interpreter derives a jewelry description from a raster sketch.
type Interpreter interface {
	Describe(ctx context.Context, raster []byte, userHint string) (string, error)
}

// VisionInterpreter calls an OpenAI-compatible vision chat endpoint.
type VisionInterpreter struct {
	client *resty.Client
	cfg    config.VisionConfig
}

// NewVisionInterpreter wires the interpreter to a resty client and config.
func NewVisionInterpreter(client *resty.Client, cfg config.VisionConfig) *VisionInterpreter {
	return &VisionInterpreter{client: client, cfg: cfg}
}

var _ Interpreter = (*VisionInterpreter)(nil)

// Describe sends the sketch inline as a base64 data URL and returns the
// model's description. Non-2xx maps to VisionUnavailable, a response
// without usable message content to VisionMalformed.
func (v *VisionInterpreter) Describe(ctx context.Context, raster []byte, userHint string) (string, error) {
	userText := "Describe the jewelry piece shown here."
	if hint := strings.TrimSpace(userHint); hint != "" {
		userText = fmt.Sprintf("Describe the jewelry piece shown here. The designer adds: %s", hint)
	}

	payload := openai.ChatCompletionRequest{
		Model:     v.cfg.Model,
		MaxTokens: v.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userText,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(raster),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+v.cfg.APIKey).
		SetBody(payload).
		Post(v.cfg.BaseURL + "/chat/completions")
	if err != nil {
		return "", errors.NewTransportFailure("vision", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", errors.NewVisionUnavailable(resp.StatusCode(), vendorMessage(resp.Body()))
	}

	var completion openai.ChatCompletionResponse
	if err := sonic.Unmarshal(resp.Body(), &completion); err != nil {
		return "", errors.NewVisionMalformed("body is not valid JSON")
	}
	if len(completion.Choices) == 0 {
		return "", errors.NewVisionMalformed("no choices in completion")
	}
	description := strings.TrimSpace(completion.Choices[0].Message.Content)
	if description == "" {
		return "", errors.NewVisionMalformed("empty message content")
	}

	return description, nil
}

// vendorMessage pulls the error message out of an OpenAI-style error body,
// falling back to the raw body.
func vendorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
