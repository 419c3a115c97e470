package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

// Gemini 基于 Google Gen AI SDK 的客户端。
// 不支持本地工具；serverTools 为 true 时启用 Google Search grounding。
type Gemini struct {
	client      *genai.Client
	name        string
	model       string
	maxTokens   int32
	temperature float32
	serverTools bool
}

var _ Client = (*Gemini)(nil)

// NewGemini 创建 Gemini 客户端
func NewGemini(ctx context.Context, cfg config.LLMConfig, serverTools bool) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api_key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{
		client:      client,
		name:        cfg.Name,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
		serverTools: serverTools,
	}, nil
}

func (g *Gemini) Name() string { return g.name }

// Generate 非流式调用
func (g *Gemini) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	contents, genConfig, err := g.buildRequest(input, opts...)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return schema.AssistantMessage(resp.Text(), nil), nil
}

// Stream 流式调用
func (g *Gemini) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	contents, genConfig, err := g.buildRequest(input, opts...)
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[*schema.Message](16)
	go func() {
		defer sw.Close()
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, genConfig) {
			if err != nil {
				sw.Send(nil, fmt.Errorf("gemini: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := sw.Send(schema.AssistantMessage(text, nil), nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

func (g *Gemini) buildRequest(input []*schema.Message, opts ...model.Option) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	common, specific := getOptions(opts...)
	if len(common.Tools) > 0 {
		return nil, nil, fmt.Errorf("gemini: local tools are not supported")
	}

	contents, system, err := convertToGemini(input)
	if err != nil {
		return nil, nil, err
	}

	genConfig := &genai.GenerateContentConfig{}
	if system != nil {
		genConfig.SystemInstruction = system
	}
	if g.temperature > 0 {
		genConfig.Temperature = genai.Ptr(g.temperature)
	}
	if g.maxTokens > 0 {
		genConfig.MaxOutputTokens = g.maxTokens
	}

	useSearch := g.serverTools && !toolsForbidden(common)
	if useSearch {
		genConfig.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if specific.jsonResponse {
		// grounding 与 JSON 响应模式不能同时开启
		genConfig.ResponseMIMEType = "application/json"
	}
	return contents, genConfig, nil
}

// convertToGemini 系统消息合并为 SystemInstruction，assistant 映射为 model 角色
func convertToGemini(input []*schema.Message) ([]*genai.Content, *genai.Content, error) {
	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if msg.Content != "" {
				systemParts = append(systemParts, genai.NewPartFromText(msg.Content))
			}
		case schema.User:
			parts, err := geminiUserParts(msg)
			if err != nil {
				return nil, nil, err
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
			}
		case schema.Assistant:
			if msg.Content != "" {
				contents = append(contents, &genai.Content{
					Role:  genai.RoleModel,
					Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
				})
			}
		default:
			return nil, nil, fmt.Errorf("gemini: unsupported message role %q", msg.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("gemini: no user message")
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Role: genai.RoleUser, Parts: systemParts}
	}
	return contents, system, nil
}

func geminiUserParts(msg *schema.Message) ([]*genai.Part, error) {
	var parts []*genai.Part
	if msg.Content != "" {
		parts = append(parts, genai.NewPartFromText(msg.Content))
	}
	for _, part := range msg.MultiContent {
		switch part.Type {
		case schema.ChatMessagePartTypeText:
			if part.Text != "" {
				parts = append(parts, genai.NewPartFromText(part.Text))
			}
		case schema.ChatMessagePartTypeImageURL:
			if part.ImageURL == nil {
				continue
			}
			mimeType, data, err := ParseDataURL(part.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("gemini: image: %w", err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, mimeType))
		}
	}
	return parts, nil
}
