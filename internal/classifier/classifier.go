// Package classifier grades receipt images as legible or not before they
// are sent to the more expensive extraction model. It talks to any
// OpenAI-compatible endpoint, typically a local vision model.
package classifier

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/models"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

const prompt = `Mirá esta imagen de un comprobante de transferencia bancaria.
Respondé con una sola palabra:
"alta_calidad" si el texto del comprobante se lee con claridad,
"baja_calidad" si está borroso, cortado, oscuro o ilegible.`

// Classifier grades images through a chat-completions vision endpoint.
type Classifier struct {
	client *openai.Client
	model  string
}

// New creates a Classifier from the classifier section of the
// configuration.
func New(cfg *config.Config) *Classifier {
	clientConfig := openai.DefaultConfig(cfg.Classifier.APIKey)
	if cfg.Classifier.BaseURL != "" {
		clientConfig.BaseURL = cfg.Classifier.BaseURL
	}
	return &Classifier{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Classifier.Model,
	}
}

// ClassifyImage grades raw image bytes.
func (c *Classifier) ClassifyImage(ctx context.Context, data []byte, mimeType string) (models.ImageQuality, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 10,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
				},
			},
		}},
	})
	if err != nil {
		return models.QualityUnknown, fmt.Errorf("classifier API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.QualityUnknown, fmt.Errorf("no response from classifier")
	}

	quality := parseQuality(resp.Choices[0].Message.Content)
	log.WithFields(logrus.Fields{"quality": quality, "reply": resp.Choices[0].Message.Content}).
		Debug("Image classified")
	return quality, nil
}

// ClassifyFile grades an image on disk.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) (models.ImageQuality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.QualityUnknown, fmt.Errorf("error reading image %s: %w", path, err)
	}

	mimeType := "image/jpeg"
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		mimeType = "image/png"
	}
	return c.ClassifyImage(ctx, data, mimeType)
}

// parseQuality maps a free-form model reply onto the known grades.
func parseQuality(reply string) models.ImageQuality {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	switch {
	case strings.Contains(normalized, string(models.QualityHigh)):
		return models.QualityHigh
	case strings.Contains(normalized, string(models.QualityLow)):
		return models.QualityLow
	default:
		return models.QualityUnknown
	}
}
