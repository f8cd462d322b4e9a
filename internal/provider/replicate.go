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

	"github.com/sirupsen/logrus"
)

const (
	replicateAPIBaseURL = "https://api.replicate.com/v1"
)

// Replicate drives image generation through the Replicate predictions API.
// Predictions are asynchronous: we create one, then poll it until it settles.
type Replicate struct {
	apiKey       string
	blendModel   string
	enhanceModel string
	httpClient   *http.Client
}

func NewReplicate(cfg config.Config) (*Replicate, error) {
	apiKey := strings.TrimSpace(cfg.ReplicateAPIKey)
	if apiKey == "" {
		return nil, errors.New("replicate api key is not configured")
	}

	return &Replicate{
		apiKey:       apiKey,
		blendModel:   strings.TrimSpace(cfg.ReplicateBlendModel),
		enhanceModel: strings.TrimSpace(cfg.ReplicateEnhanceModel),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (r *Replicate) ProviderID() string {
	return DriverReplicate
}

// Blend merges the two source images into a single fused creature image.
func (r *Replicate) Blend(ctx context.Context, image1, image2, headName, bodyName string) (string, error) {
	if strings.TrimSpace(image1) == "" || strings.TrimSpace(image2) == "" {
		return "", errors.New("blend requires two source images")
	}

	prompt := fmt.Sprintf("a single fantasy creature combining the head of %s with the body of %s, clean white background", headName, bodyName)
	input := map[string]any{
		"image_1": image1,
		"image_2": image2,
		"prompt":  prompt,
	}

	providerLogger(ctx, r.ProviderID()).WithFields(logrus.Fields{
		"model":          r.blendModel,
		"prompt_preview": logSnippet(prompt),
	}).Info("replicate_blend_start")

	return r.runPrediction(ctx, r.blendModel, input)
}

// Enhance re-renders an image guided by the structured prompt.
func (r *Replicate) Enhance(ctx context.Context, image, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	input := map[string]any{
		"prompt":          prompt,
		"image":           image,
		"prompt_strength": 0.6,
		"num_outputs":     1,
	}

	providerLogger(ctx, r.ProviderID()).WithFields(logrus.Fields{
		"model":          r.enhanceModel,
		"prompt_preview": logSnippet(prompt),
	}).Info("replicate_enhance_start")

	return r.runPrediction(ctx, r.enhanceModel, input)
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (r *Replicate) runPrediction(ctx context.Context, model string, input map[string]any) (string, error) {
	if model == "" {
		return "", errors.New("replicate model is not configured")
	}

	pred, err := r.createPrediction(ctx, model, input)
	if err != nil {
		return "", err
	}

	// Fast path: some deployments answer synchronously.
	if MapTaskStatus(pred.Status) == TaskStatusSucceeded {
		return decodeReplicateOutput(pred.Output)
	}

	return WaitForTask(ctx, r, pred.ID, ReplicatePollConfig)
}

func (r *Replicate) createPrediction(ctx context.Context, model string, input map[string]any) (*replicatePrediction, error) {
	bs, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("replicate marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", replicateAPIBaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("replicate create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var pred replicatePrediction
	if err := r.doJSON(req, &pred); err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, &Error{Provider: r.ProviderID(), Message: "prediction response missing id"}
	}
	return &pred, nil
}

// Poll implements TaskPoller over the predictions endpoint.
func (r *Replicate) Poll(ctx context.Context, taskID string) (*AsyncTask, error) {
	url := fmt.Sprintf("%s/predictions/%s", replicateAPIBaseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	var pred replicatePrediction
	if err := r.doJSON(req, &pred); err != nil {
		return nil, err
	}

	task := &AsyncTask{
		ID:         pred.ID,
		ProviderID: r.ProviderID(),
		Status:     MapTaskStatus(pred.Status),
	}

	switch task.Status {
	case TaskStatusSucceeded:
		output, err := decodeReplicateOutput(pred.Output)
		if err != nil {
			task.Status = TaskStatusFailed
			task.Error = err
			return task, nil
		}
		task.Output = output
	case TaskStatusFailed:
		msg := strings.TrimSpace(pred.Error)
		if msg == "" {
			msg = "prediction failed"
		}
		task.Error = &Error{Provider: r.ProviderID(), StatusCode: http.StatusUnprocessableEntity, Message: msg}
	}

	return task, nil
}

func (r *Replicate) doJSON(req *http.Request, out any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &Error{Provider: r.ProviderID(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Provider: r.ProviderID(), Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   logSnippet(string(body)),
		}).Error("replicate http error")
		return &Error{Provider: r.ProviderID(), StatusCode: resp.StatusCode, Message: logSnippet(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Provider: r.ProviderID(), Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	return nil
}

// decodeReplicateOutput tolerates the two shapes Replicate models return:
// a bare URL string or an array of URL strings.
func decodeReplicateOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("prediction output is empty")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return "", errors.New("prediction output is empty")
		}
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, item := range many {
			if strings.TrimSpace(item) != "" {
				return item, nil
			}
		}
		return "", errors.New("prediction output is empty")
	}

	return "", errors.New("prediction output has unsupported shape")
}
