// Package llm 定义引擎消费的大模型能力，并提供 OpenAI 兼容、Claude、Gemini 三种实现。
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

// Client 引擎使用的 LLM 能力：eino 的 Generate / Stream 加上展示名称。
// 工具集合和工具选择通过 model.WithTools / model.WithToolChoice 按次传入，
// 实现不得在调用之间保存请求相关状态。
type Client interface {
	model.BaseChatModel
	Name() string
}

// options 各实现共享的扩展选项
type options struct {
	jsonResponse bool
}

// WithJSONResponse 要求模型以 JSON 作答，由 Claude / Gemini 实现按次读取。
// OpenAI 兼容实现不读取该选项，JSON 输出在 NewOpenAI 构造时开启。
func WithJSONResponse() model.Option {
	return model.WrapImplSpecificOptFn(func(o *options) {
		o.jsonResponse = true
	})
}

func getOptions(opts ...model.Option) (*model.Options, *options) {
	common := model.GetCommonOptions(&model.Options{}, opts...)
	specific := model.GetImplSpecificOptions(&options{}, opts...)
	return common, specific
}

// toolsForbidden 调用方是否显式禁止了工具
func toolsForbidden(o *model.Options) bool {
	return o.ToolChoice != nil && *o.ToolChoice == schema.ToolChoiceForbidden
}

// named 给任意 eino 模型附加展示名称
type named struct {
	model.BaseChatModel
	name string
}

func (n *named) Name() string { return n.name }

// Named 包装一个已有的 eino 模型
func Named(m model.BaseChatModel, name string) Client {
	return &named{BaseChatModel: m, name: name}
}

// ImageDataURL 把图片编码为 data URL
func ImageDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURL 解析 base64 data URL，返回 MIME 类型和原始字节
func ParseDataURL(u string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data url is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mimeType, data, nil
}

// NewClient 根据配置创建 LLM 客户端
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAI(ctx, cfg.LLM, cfg.DirectJSON())
	case "claude":
		return NewClaude(cfg.LLM, cfg.Strategy.ServerSideTools)
	case "gemini":
		return NewGemini(ctx, cfg.LLM, cfg.Strategy.ServerSideTools)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
