package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
)

const (
	defaultClaudeMaxTokens = 4096
	// claudeWebSearchMaxUses 单次请求内服务端搜索的次数上限
	claudeWebSearchMaxUses = 5
)

// Claude 基于 Anthropic Messages API 的客户端。
// 不支持本地工具；serverTools 为 true 时启用服务端 web search。
type Claude struct {
	client      anthropic.Client
	name        string
	model       string
	maxTokens   int64
	temperature float32
	serverTools bool
}

var _ Client = (*Claude)(nil)

// NewClaude 创建 Claude 客户端
func NewClaude(cfg config.LLMConfig, serverTools bool) (*Claude, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api_key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &Claude{
		client:      anthropic.NewClient(opts...),
		name:        cfg.Name,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		serverTools: serverTools,
	}, nil
}

func (c *Claude) Name() string { return c.name }

// Generate 非流式调用
func (c *Claude) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params, err := c.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return schema.AssistantMessage(text.String(), nil), nil
}

// Stream 流式调用，每个文本增量对应一个消息分片
func (c *Claude) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	params, err := c.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	sr, sw := schema.Pipe[*schema.Message](16)
	go func() {
		defer sw.Close()
		defer stream.Close()
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorf("claude stream panic: %v", r)
				sw.Send(nil, fmt.Errorf("claude stream panic: %v", r))
			}
		}()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}
			if closed := sw.Send(schema.AssistantMessage(event.Delta.Text, nil), nil); closed {
				return
			}
		}
		if err := stream.Err(); err != nil {
			sw.Send(nil, fmt.Errorf("claude: %w", err))
		}
	}()
	return sr, nil
}

func (c *Claude) buildParams(input []*schema.Message, opts ...model.Option) (anthropic.MessageNewParams, error) {
	common, _ := getOptions(opts...)
	if len(common.Tools) > 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("claude: local tools are not supported")
	}

	messages, system, err := convertToClaude(input)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.serverTools && !toolsForbidden(common) {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(claudeWebSearchMaxUses),
			},
		}}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}
	return params, nil
}

// convertToClaude 系统消息合并为 system 字段，其余按角色转换
func convertToClaude(input []*schema.Message) ([]anthropic.MessageParam, string, error) {
	var systemParts []string
	messages := make([]anthropic.MessageParam, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if msg.Content != "" {
				systemParts = append(systemParts, msg.Content)
			}
		case schema.User:
			blocks, err := claudeUserBlocks(msg)
			if err != nil {
				return nil, "", err
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewUserMessage(blocks...))
			}
		case schema.Assistant:
			if msg.Content != "" {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			}
		default:
			return nil, "", fmt.Errorf("claude: unsupported message role %q", msg.Role)
		}
	}
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("claude: no user message")
	}
	return messages, strings.Join(systemParts, "\n\n"), nil
}

func claudeUserBlocks(msg *schema.Message) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, part := range msg.MultiContent {
		switch part.Type {
		case schema.ChatMessagePartTypeText:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case schema.ChatMessagePartTypeImageURL:
			if part.ImageURL == nil {
				continue
			}
			mimeType, data, err := ParseDataURL(part.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("claude: image: %w", err)
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data)))
		}
	}
	return blocks, nil
}
