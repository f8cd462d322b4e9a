package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pokefusion/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

//文档:https://www.volcengine.com/docs/82379/1824121

// Volcengine drives Doubao Seedream image generation through the ark runtime
// SDK. Seedream accepts reference images, which covers both blend and enhance.
type Volcengine struct {
	client *arkruntime.Client
	model  string
}

func NewVolcengine(cfg config.Config) (*Volcengine, error) {
	apiKey := strings.TrimSpace(cfg.VolcengineAPIKey)
	if apiKey == "" {
		return nil, errors.New("volcengine api key is not configured")
	}

	return &Volcengine{
		client: arkruntime.NewClientWithApiKey(apiKey),
		model:  strings.TrimSpace(cfg.VolcengineModel),
	}, nil
}

func (v *Volcengine) ProviderID() string {
	return DriverVolcengine
}

func (v *Volcengine) Blend(ctx context.Context, image1, image2, headName, bodyName string) (string, error) {
	if strings.TrimSpace(image1) == "" || strings.TrimSpace(image2) == "" {
		return "", errors.New("blend requires two source images")
	}

	prompt := fmt.Sprintf("将这两只生物融合为一只新生物：头部来自%s，身体来自%s。只生成一张融合后的完整生物图片，干净背景。", headName, bodyName)
	return v.generate(ctx, prompt, []string{image1, image2})
}

func (v *Volcengine) Enhance(ctx context.Context, image, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	var refs []string
	if strings.TrimSpace(image) != "" {
		refs = append(refs, image)
	}
	return v.generate(ctx, prompt, refs)
}

func (v *Volcengine) generate(ctx context.Context, prompt string, refs []string) (string, error) {
	var sequentialImageGeneration volcModel.SequentialImageGeneration = "disabled"
	generateReq := volcModel.GenerateImagesRequest{
		Model:                     v.model,
		Prompt:                    prompt,
		Image:                     refs,
		Size:                      volcengine.String("2K"),
		ResponseFormat:            volcengine.String(volcModel.GenerateImagesResponseFormatURL),
		Watermark:                 volcengine.Bool(false),
		SequentialImageGeneration: &sequentialImageGeneration,
	}

	providerLogger(ctx, v.ProviderID()).WithFields(logrus.Fields{
		"model":          v.model,
		"prompt_preview": logSnippet(prompt),
		"reference_cnt":  len(refs),
	}).Info("volcengine_generate_start")

	stream, err := v.client.GenerateImagesStreaming(ctx, generateReq)
	if err != nil {
		return "", &Error{Provider: v.ProviderID(), Message: fmt.Sprintf("generate images streaming: %v", err)}
	}
	defer stream.Close()

	var imageURL string
	var lastErrMsg string
	for {
		recv, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.WithError(err).Error("volcengine stream recv error")
			if imageURL == "" {
				return "", &Error{Provider: v.ProviderID(), Message: err.Error()}
			}
			break
		}
		switch recv.Type {
		case "image_generation.partial_failed":
			if recv.Error != nil {
				lastErrMsg = recv.Error.Message
				logrus.WithFields(logrus.Fields{
					"code":    recv.Error.Code,
					"message": recv.Error.Message,
				}).Warn("volcengine partial failure")
				if strings.EqualFold(recv.Error.Code, "InternalServiceError") {
					return "", &Error{Provider: v.ProviderID(), StatusCode: 500, Message: recv.Error.Message}
				}
			}
		case "image_generation.partial_succeeded":
			if recv.Error == nil && recv.Url != nil {
				imageURL = *recv.Url
				logrus.WithFields(logrus.Fields{
					"size": recv.Size,
					"url":  logSnippet(*recv.Url),
				}).Debug("volcengine partial image")
			}
		case "image_generation.completed":
			if recv.Error == nil && recv.Usage != nil {
				logrus.WithField("usage", *recv.Usage).Debug("volcengine generation completed")
			}
		}
	}

	if imageURL == "" {
		if lastErrMsg == "" {
			lastErrMsg = "stream ended without image"
		}
		return "", &Error{Provider: v.ProviderID(), Message: lastErrMsg}
	}
	return imageURL, nil
}
