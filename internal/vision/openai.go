package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultPrompt = "Describe this image in two or three sentences, focusing on what a person in the conversation would comment on."

// OpenAIAnalyzer implements Analyzer over an OpenAI-compatible
// multimodal chat endpoint. Images travel inline as base64 data URIs.
type OpenAIAnalyzer struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

func NewOpenAIAnalyzer(apiKey, apiBase, model string) *OpenAIAnalyzer {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	return &OpenAIAnalyzer{
		apiKey:  apiKey,
		apiBase: strings.TrimRight(apiBase, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type visionContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content []visionContent `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens,omitempty"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeImage sends data to the model and returns its textual
// description.
func (a *OpenAIAnalyzer) AnalyzeImage(ctx context.Context, data []byte, prompt string) (string, error) {
	if prompt == "" {
		prompt = defaultPrompt
	}

	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	body := visionRequest{Model: a.model, MaxTokens: 300}
	body.Messages = append(body.Messages, struct {
		Role    string          `json:"role"`
		Content []visionContent `json:"content"`
	}{
		Role: "user",
		Content: []visionContent{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &struct {
				URL string `json:"url"`
			}{URL: dataURI}},
		},
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("vision: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var vr visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if vr.Error != nil {
		return "", fmt.Errorf("vision: %s", vr.Error.Message)
	}
	if len(vr.Choices) == 0 {
		return "", fmt.Errorf("vision: empty choices")
	}
	return strings.TrimSpace(vr.Choices[0].Message.Content), nil
}
