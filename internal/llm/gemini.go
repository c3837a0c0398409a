package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/httpkit"
	"github.com/zefa-finance/zefa-backend/internal/tools"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient speaks the Gemini generateContent API.
//
// Gemini does not assign IDs to function calls, so this adapter
// synthesizes ordinal IDs ("gemini_0", "gemini_1", ...) per response to
// keep call/result correlation uniform with the other providers.
type GeminiClient struct {
	baseURL    string
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(opts Options) *GeminiClient {
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &GeminiClient{
		baseURL: geminiAPIBase,
		opts:    opts,
		logger:  opts.Logger.With("provider", "gemini"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

func (c *GeminiClient) Provider() string { return "gemini" }

// Gemini request/response types

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	Tools             []geminiToolList `json:"tools,omitempty"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResp struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

type geminiToolList struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Chat sends a chat completion request.
func (c *GeminiClient) Chat(ctx context.Context, apiKey string, messages []Message, defs []tools.Definition) (*ChatResponse, error) {
	contents, system := convertToGemini(messages)

	req := geminiRequest{
		Contents: contents,
		Tools:    convertToolsToGemini(defs),
		GenerationConfig: geminiGenConfig{
			Temperature:     c.opts.Temperature,
			MaxOutputTokens: c.opts.MaxTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("preparing request",
		"model", c.opts.Model,
		"contents", len(contents),
		"tools", len(defs),
	)
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.opts.Model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, &APIError{Provider: "gemini", StatusCode: resp.StatusCode, Body: errBody}
	}

	var wire geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(wire.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response has no candidates")
	}

	result := convertFromGemini(&wire, c.opts.Model)
	c.logger.Debug("response received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.ToolCalls),
	)
	c.logger.Log(ctx, LevelTrace, "response content", "content", result.Content)
	return result, nil
}

// convertToGemini converts neutral messages to Gemini contents. System
// messages become the system instruction; assistant turns map to the
// "model" role; tool results become functionResponse parts under the
// "user" role.
func convertToGemini(messages []Message) ([]geminiContent, string) {
	var systemParts []string
	var contents []geminiContent

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, msg.Content)

		case "assistant":
			var parts []geminiPart
			if msg.Content != "" {
				parts = append(parts, geminiPart{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Arguments
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: args},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, geminiPart{Text: ""})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})

		case "tool":
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{
					FunctionResponse: &geminiFunctionResp{
						Name:     msg.Name,
						Response: wrapGeminiResponse(msg.Content),
					},
				}},
			})

		case "user":
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	return contents, strings.Join(systemParts, "\n\n")
}

// wrapGeminiResponse turns a tool result string into the JSON object the
// functionResponse field requires.
func wrapGeminiResponse(content string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		return obj
	}
	return map[string]any{"result": content}
}

func convertToolsToGemini(defs []tools.Definition) []geminiToolList {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, geminiFunctionDecl{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return []geminiToolList{{FunctionDeclarations: decls}}
}

func convertFromGemini(wire *geminiResponse, model string) *ChatResponse {
	if wire.ModelVersion != "" {
		model = wire.ModelVersion
	}
	resp := &ChatResponse{
		Model:        model,
		Role:         "assistant",
		InputTokens:  wire.UsageMetadata.PromptTokenCount,
		OutputTokens: wire.UsageMetadata.CandidatesTokenCount,
	}

	var content strings.Builder
	for _, part := range wire.Candidates[0].Content.Parts {
		if part.Text != "" {
			content.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("gemini_%d", len(resp.ToolCalls)),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	resp.Content = content.String()
	return resp
}
