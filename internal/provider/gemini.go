package provider

import (
	"bytes"
	"context"
	"encoding/base64"
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

const geminiGenerateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Request payload pieces ----------------------------------------------------
type (
	geminiInlineData struct {
		MimeType string `json:"mimeType,omitempty"`
		Data     string `json:"data,omitempty"`
	}
	geminiPart struct {
		Text       string            `json:"text,omitempty"`
		InlineData *geminiInlineData `json:"inlineData,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiRequest struct {
		Contents []geminiContent `json:"contents"`
	}
)

// Response payload pieces ---------------------------------------------------
type (
	geminiCandidate struct {
		FinishReason string        `json:"finishReason,omitempty"`
		Content      geminiContent `json:"content"`
	}
	geminiError struct {
		Message string `json:"message"`
	}
	geminiResponse struct {
		Candidates []geminiCandidate `json:"candidates"`
		Error      *geminiError      `json:"error,omitempty"`
	}
)

// Gemini can serve all three stages: multimodal input covers blend and
// describe, inlineData output covers image generation.
type Gemini struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGemini(cfg config.Config) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}

	return &Gemini{
		apiKey:     apiKey,
		model:      strings.TrimSpace(cfg.GeminiModel),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (g *Gemini) ProviderID() string {
	return DriverGemini
}

func (g *Gemini) Blend(ctx context.Context, image1, image2, headName, bodyName string) (string, error) {
	if strings.TrimSpace(image1) == "" || strings.TrimSpace(image2) == "" {
		return "", errors.New("blend requires two source images")
	}

	prompt := fmt.Sprintf("Combine these two creatures into a single new creature that has the head of %s and the body of %s. Output one image of the fused creature on a clean background.", headName, bodyName)

	parts, errs := buildGeminiParts(ctx, prompt, []string{image1, image2})
	if len(errs) > 0 {
		logrus.WithField("errors", strings.Join(errs, "; ")).Warn("gemini some references could not be parsed")
	}
	if len(parts) < 3 {
		return "", errors.New("gemini blend requires both images to be decodable")
	}

	image, text, err := g.generate(ctx, parts)
	if err != nil {
		return "", err
	}
	if image == "" {
		return "", &Error{Provider: g.ProviderID(), Message: "response did not include image data: " + logSnippet(text)}
	}
	return image, nil
}

func (g *Gemini) Describe(ctx context.Context, image string) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", errors.New("describe requires an image")
	}

	parts, errs := buildGeminiParts(ctx, openaiDescribeInstruction, []string{image})
	if len(errs) > 0 {
		logrus.WithField("errors", strings.Join(errs, "; ")).Warn("gemini some references could not be parsed")
	}
	if len(parts) < 2 {
		return "", errors.New("gemini describe requires a decodable image")
	}

	_, text, err := g.generate(ctx, parts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &Error{Provider: g.ProviderID(), Message: "response text is empty"}
	}
	return text, nil
}

func (g *Gemini) Enhance(ctx context.Context, image, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	refs := []string{}
	if strings.TrimSpace(image) != "" {
		refs = append(refs, image)
	}
	parts, errs := buildGeminiParts(ctx, prompt, refs)
	if len(errs) > 0 {
		logrus.WithField("errors", strings.Join(errs, "; ")).Warn("gemini some references could not be parsed")
	}

	imageOut, text, err := g.generate(ctx, parts)
	if err != nil {
		return "", err
	}
	if imageOut == "" {
		return "", &Error{Provider: g.ProviderID(), Message: "response did not include image data: " + logSnippet(text)}
	}
	return imageOut, nil
}

func (g *Gemini) generate(ctx context.Context, parts []geminiPart) (image, text string, err error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: parts},
		},
	}

	bs, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("gemini marshal request: %w", err)
	}

	targetURL := fmt.Sprintf(geminiGenerateEndpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(bs))
	if err != nil {
		return "", "", fmt.Errorf("gemini create request: %w", err)
	}
	// Prefer header to avoid logging API key inside URLs; most gateways accept this.
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", &Error{Provider: g.ProviderID(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &Error{Provider: g.ProviderID(), Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(string(body)),
		}).Error("gemini generate content http error")
		return "", "", &Error{Provider: g.ProviderID(), StatusCode: resp.StatusCode, Message: logSnippet(string(body))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", &Error{Provider: g.ProviderID(), Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return "", "", &Error{Provider: g.ProviderID(), Message: parsed.Error.Message}
	}

	var textParts []string
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
			// InlineData returns base64 image payload; wrap it into a data URL
			// so downstream consumers can persist it without guessing MIME type.
			if image == "" && part.InlineData != nil && strings.TrimSpace(part.InlineData.Data) != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				image = fmt.Sprintf("data:%s;base64,%s", mime, strings.TrimSpace(part.InlineData.Data))
			}
		}
	}

	return image, strings.TrimSpace(strings.Join(textParts, "\n")), nil
}

// buildGeminiParts converts prompt and optional reference images into the
// Content/Part structure. Errors are collected (for logging) but skipped so
// one bad reference does not block the entire request.
func buildGeminiParts(ctx context.Context, prompt string, refs []string) ([]geminiPart, []string) {
	parts := []geminiPart{
		{Text: strings.TrimSpace(prompt)},
	}

	var errs []string
	for idx, ref := range refs {
		trimmed := strings.TrimSpace(ref)
		if trimmed == "" {
			continue
		}

		part, err := buildGeminiImagePart(ctx, trimmed)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ref %d: %v", idx, err))
			continue
		}
		parts = append(parts, part)
	}

	return parts, errs
}

// buildGeminiImagePart normalizes a user-supplied image payload into the
// inlineData shape Gemini expects. We accept:
// - http(s) URLs: fetched and re-encoded as base64 for inlineData
// - data URLs or bare base64 strings: parsed and re-used
func buildGeminiImagePart(ctx context.Context, payload string) (geminiPart, error) {
	// Remote URL: download then encode.
	if strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://") {
		b64, mimeType, err := downloadImageAsBase64(ctx, payload)
		if err != nil {
			return geminiPart{}, fmt.Errorf("download reference: %w", err)
		}
		return geminiPart{
			InlineData: &geminiInlineData{MimeType: mimeType, Data: b64},
		}, nil
	}

	// Inline payload: parse data URL or plain base64.
	mimeType, base64Payload := utils.SplitDataURL(utils.EnsureDataURL(payload))
	base64Payload = strings.TrimSpace(base64Payload)
	if base64Payload == "" {
		return geminiPart{}, errors.New("empty base64 payload")
	}

	raw, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return geminiPart{}, fmt.Errorf("decode base64: %w", err)
	}

	// Re-encode to remove whitespace and keep a clean payload for Gemini.
	normalized := base64.StdEncoding.EncodeToString(raw)

	if mimeType == "" {
		mimeType = "image/png"
	}
	return geminiPart{
		InlineData: &geminiInlineData{MimeType: mimeType, Data: normalized},
	}, nil
}

// downloadImageAsBase64 pulls the remote asset and encodes it for inlineData usage.
func downloadImageAsBase64(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("download image http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read image body: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return base64.StdEncoding.EncodeToString(data), mimeType, nil
}
