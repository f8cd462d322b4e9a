package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pokefusion/internal/config"
	"pokefusion/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	openaiAPIBaseURL = "https://api.openai.com/v1"

	openaiDescribeInstruction = "Describe the visual appearance of the creature in this image. " +
		"Answer with exactly three lines:\n" +
		"Body structure: <one short phrase>\n" +
		"Color palette: <one short phrase>\n" +
		"Notable features: <one short phrase>"
)

// OpenAI covers the describe stage (chat completions with vision input)
// and the enhance stage (images API).
type OpenAI struct {
	apiKey        string
	describeModel string
	imageModel    string
	httpClient    *http.Client
}

func NewOpenAI(cfg config.Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is not configured")
	}

	return &OpenAI{
		apiKey:        apiKey,
		describeModel: strings.TrimSpace(cfg.OpenAIDescribeModel),
		imageModel:    strings.TrimSpace(cfg.OpenAIImageModel),
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAI) ProviderID() string {
	return DriverOpenAI
}

type (
	openaiImageURL struct {
		URL string `json:"url"`
	}
	openaiMsgPart struct {
		Type     string          `json:"type"` // "text" | "image_url"
		Text     string          `json:"text,omitempty"`
		ImageURL *openaiImageURL `json:"image_url,omitempty"`
	}
	openaiMessage struct {
		Role    string          `json:"role"`
		Content []openaiMsgPart `json:"content"`
	}
	openaiChatResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
)

// Describe asks the vision model for a structured appearance description.
func (o *OpenAI) Describe(ctx context.Context, image string) (string, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", errors.New("describe requires an image")
	}

	reqBody := map[string]any{
		"model": o.describeModel,
		"messages": []openaiMessage{
			{
				Role: "user",
				Content: []openaiMsgPart{
					{Type: "text", Text: openaiDescribeInstruction},
					{Type: "image_url", ImageURL: &openaiImageURL{URL: utils.EnsureDataURL(image)}},
				},
			},
		},
		"max_tokens": 300,
	}

	providerLogger(ctx, o.ProviderID()).WithFields(logrus.Fields{
		"model":     o.describeModel,
		"image_len": len(image),
	}).Info("openai_describe_start")

	var parsed openaiChatResponse
	if err := o.postJSON(ctx, "/chat/completions", reqBody, &parsed); err != nil {
		return "", err
	}

	if len(parsed.Choices) == 0 {
		return "", &Error{Provider: o.ProviderID(), Message: "chat response has no choices"}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &Error{Provider: o.ProviderID(), Message: "chat response content is empty"}
	}
	return content, nil
}

type openaiImagesResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Enhance renders a polished image from the structured prompt.
func (o *OpenAI) Enhance(ctx context.Context, image, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is required")
	}

	reqBody := map[string]any{
		"model":  o.imageModel,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	}

	providerLogger(ctx, o.ProviderID()).WithFields(logrus.Fields{
		"model":          o.imageModel,
		"prompt_preview": logSnippet(prompt),
	}).Info("openai_enhance_start")

	var parsed openaiImagesResponse
	if err := o.postJSON(ctx, "/images/generations", reqBody, &parsed); err != nil {
		return "", err
	}

	for _, item := range parsed.Data {
		if url := strings.TrimSpace(item.URL); url != "" {
			return url, nil
		}
		if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
			return "data:image/png;base64," + b64, nil
		}
	}
	return "", &Error{Provider: o.ProviderID(), Message: "images response did not include image data"}
}

func (o *OpenAI) postJSON(ctx context.Context, path string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIBaseURL+path, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("openai create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return &Error{Provider: o.ProviderID(), Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Provider: o.ProviderID(), Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
			"body":   logSnippet(string(respBody)),
		}).Error("openai http error")
		return &Error{Provider: o.ProviderID(), StatusCode: resp.StatusCode, Message: logSnippet(string(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Provider: o.ProviderID(), Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	return nil
}
