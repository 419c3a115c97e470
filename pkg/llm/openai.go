package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

// NewOpenAI 创建 OpenAI 兼容协议的客户端，支持本地工具调用。
// jsonResponse 为 true 时请求级别开启 JSON 对象输出。
func NewOpenAI(ctx context.Context, cfg config.LLMConfig, jsonResponse bool) (Client, error) {
	chatModel, err := openai.NewChatModel(ctx, openAIConfig(cfg, jsonResponse))
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return Named(chatModel, cfg.Name), nil
}

func openAIConfig(cfg config.LLMConfig, jsonResponse bool) *openai.ChatModelConfig {
	mc := &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		mc.Temperature = &temperature
	}
	// eino 的 openai 模型不读取 WithJSONResponse，只能在构造时设置
	if jsonResponse {
		mc.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return mc
}
