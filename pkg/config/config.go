package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Research    ResearchConfig    `yaml:"research"`
	Search      SearchConfig      `yaml:"search"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai / claude / gemini
	Name        string  `yaml:"name"`     // 展示名称，写入 Recommendation.ProviderUsed
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	Timeout     int     `yaml:"timeout"` // 秒
}

// StrategyConfig 决定分析策略的能力开关，优先级见 engine.SelectStrategy
type StrategyConfig struct {
	ServerSideTools  bool `yaml:"server_side_tools"`
	UpfrontResearch  bool `yaml:"upfront_research"`
	ToolCalling      bool `yaml:"tool_calling"`
	StructuredOutput bool `yaml:"structured_output"`
	MaxToolTurns     int  `yaml:"max_tool_turns"`
}

// ResearchConfig 调研子流程配置
type ResearchConfig struct {
	Mode       string `yaml:"mode"` // summary / full
	MaxResults int    `yaml:"max_results"`
	Timeout    int    `yaml:"timeout"` // 单篇文章抓取超时，秒
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	Tavily   TavilyConfig  `yaml:"tavily"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 搜索请求限速配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// 默认值
const (
	DefaultResearchMode    = "summary"
	DefaultMaxResults      = 8
	DefaultMaxToolTurns    = 5
	DefaultLLMTimeout      = 120
	DefaultResearchTimeout = 30
)

// LoadConfig 从指定路径加载配置，文件中的 ${VAR} 会用环境变量展开
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析 YAML 配置并填充默认值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 填充未设置的字段
func (c *Config) ApplyDefaults() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Name == "" {
		c.LLM.Name = c.LLM.Provider
		if c.LLM.Model != "" {
			c.LLM.Name += "/" + c.LLM.Model
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = DefaultLLMTimeout
	}
	c.Research.Mode = strings.ToLower(strings.TrimSpace(c.Research.Mode))
	if c.Research.Mode == "" {
		c.Research.Mode = DefaultResearchMode
	}
	if c.Research.MaxResults <= 0 {
		c.Research.MaxResults = DefaultMaxResults
	}
	if c.Research.Timeout <= 0 {
		c.Research.Timeout = DefaultResearchTimeout
	}
	if c.Strategy.MaxToolTurns <= 0 {
		c.Strategy.MaxToolTurns = DefaultMaxToolTurns
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// NeedsSearch 当前策略组合是否需要本地搜索能力
func (c *Config) NeedsSearch() bool {
	if c.Strategy.ServerSideTools {
		return false
	}
	return c.Strategy.UpfrontResearch || c.Strategy.ToolCalling
}

// DirectJSON 是否落到单次 JSON 调用：只开启了 structured_output，
// 没有更高优先级的能力开关。与 engine.SelectStrategy 的优先级一致。
func (c *Config) DirectJSON() bool {
	s := c.Strategy
	return s.StructuredOutput && !s.ServerSideTools && !s.UpfrontResearch && !s.ToolCalling
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "claude", "gemini":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	switch c.Research.Mode {
	case "summary", "full":
	default:
		return fmt.Errorf("unknown research mode: %s", c.Research.Mode)
	}
	// 本地工具调用只接入了 OpenAI 兼容协议
	if c.Strategy.ToolCalling && !c.Strategy.ServerSideTools && !c.Strategy.UpfrontResearch && c.LLM.Provider != "openai" {
		return fmt.Errorf("tool_calling requires the openai provider, got %s", c.LLM.Provider)
	}
	if c.Strategy.ServerSideTools && c.LLM.Provider == "openai" {
		return fmt.Errorf("server_side_tools requires the claude or gemini provider")
	}
	return nil
}
