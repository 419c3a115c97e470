package engine

import (
	"github.com/cloudwego/eino/schema"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

// Strategy 分析策略
type Strategy int

const (
	// StreamingWithExtraction 流式输出，结束后从文本中提取 JSON
	StreamingWithExtraction Strategy = iota
	// Direct 单次非流式调用，模型直接返回 JSON
	Direct
	// AutonomousTools 模型自主调用本地工具后作答
	AutonomousTools
	// UpfrontResearch 先调研，再把结果注入系统提示词
	UpfrontResearch
	// PassthroughTools 不提供本地工具，由服务端工具完成检索
	PassthroughTools
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case AutonomousTools:
		return "autonomous_tools"
	case UpfrontResearch:
		return "upfront_research"
	case PassthroughTools:
		return "passthrough_tools"
	default:
		return "streaming_with_extraction"
	}
}

// Features 提供方能力开关
type Features struct {
	ServerSideTools  bool
	UpfrontResearch  bool
	ToolCalling      bool
	StructuredOutput bool
}

// FeaturesFromConfig 从策略配置读取能力开关
func FeaturesFromConfig(c config.StrategyConfig) Features {
	return Features{
		ServerSideTools:  c.ServerSideTools,
		UpfrontResearch:  c.UpfrontResearch,
		ToolCalling:      c.ToolCalling,
		StructuredOutput: c.StructuredOutput,
	}
}

// strategyRules 按优先级排列，第一条命中的规则决定策略
var strategyRules = []struct {
	match    func(Features) bool
	strategy Strategy
}{
	{func(f Features) bool { return f.ServerSideTools }, PassthroughTools},
	{func(f Features) bool { return f.UpfrontResearch }, UpfrontResearch},
	{func(f Features) bool { return f.ToolCalling }, AutonomousTools},
	{func(f Features) bool { return f.StructuredOutput }, Direct},
}

// SelectStrategy 根据能力开关选择策略
func SelectStrategy(f Features) Strategy {
	for _, rule := range strategyRules {
		if rule.match(f) {
			return rule.strategy
		}
	}
	return StreamingWithExtraction
}

// toolChoiceFor 第一轮强制调用工具，预算用完后的一轮禁止调用
func toolChoiceFor(turn, maxTurns int) schema.ToolChoice {
	switch {
	case turn == 0:
		return schema.ToolChoiceForced
	case turn < maxTurns:
		return schema.ToolChoiceAllowed
	default:
		return schema.ToolChoiceForbidden
	}
}
