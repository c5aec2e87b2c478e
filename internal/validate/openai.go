package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dbelyaev/invoicescan/internal/common"
)

const validatorSystemPrompt = `Ты проверяешь результат извлечения полей из российского счёта на оплату.
Тебе дают имя поля, извлечённое значение и фрагмент текста, из которого оно взято.
Ответь строго JSON-объектом {"plausible": true|false, "confidence": 0.0-1.0} без пояснений.
plausible=false только если значение явно не является тем, чем должно быть (например, обрезок адреса вместо названия организации).`

// OpenAIValidator asks a chat model whether an extracted value looks
// like a real value for its field. Verdicts are advisory.
type OpenAIValidator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewOpenAIValidator(cfg common.ValidatorConfig, logger *slog.Logger) (*OpenAIValidator, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "validator enabled but no API key set", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIValidator{
		client:  openai.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

type verdict struct {
	Plausible  bool    `json:"plausible"`
	Confidence float32 `json:"confidence"`
}

func (v *OpenAIValidator) Validate(ctx context.Context, field, value, contextText string) (bool, float32, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Поле: %s\nЗначение: %s\nФрагмент текста: %s", field, value, contextText)
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       v.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: validatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return false, 0, common.WrapError(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return false, 0, common.NewAppError("VALIDATOR_ERROR", "empty completion", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var out verdict
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		v.logger.Warn("validator returned non-JSON verdict", "content", truncate(content, 200))
		return false, 0, common.WrapError(err, "decode verdict")
	}
	return out.Plausible, out.Confidence, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
