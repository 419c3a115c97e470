package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want Strategy
	}{
		{"streaming", `
llm: {provider: openai, api_key: sk, model: gpt-4o}
`, StreamingWithExtraction},
		{"direct", `
llm: {provider: openai, api_key: sk, model: gpt-4o}
strategy: {structured_output: true}
`, Direct},
		{"upfront research", `
llm: {provider: openai, api_key: sk, model: gpt-4o}
strategy: {upfront_research: true}
research: {mode: full}
search: {provider: searxng, searxng: {base_url: "http://localhost:8888"}}
`, UpfrontResearch},
		{"autonomous tools", `
llm: {provider: openai, api_key: sk, model: gpt-4o}
strategy: {tool_calling: true}
search: {provider: tavily, tavily: {api_key: tv}}
`, AutonomousTools},
		{"passthrough", `
llm: {provider: claude, api_key: sk-ant, model: claude-sonnet-4-5}
strategy: {server_side_tools: true, upfront_research: true}
`, PassthroughTools},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewFromConfig(context.Background(), testConfig(t, tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Strategy())
		})
	}
}

func TestNewFromConfigMissingSearch(t *testing.T) {
	cfg := testConfig(t, `
llm: {provider: openai, api_key: sk, model: gpt-4o}
strategy: {upfront_research: true}
`)
	_, err := NewFromConfig(context.Background(), cfg)
	assert.Error(t, err)
}

func TestDirectJSONMatchesStrategy(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		sc := config.StrategyConfig{
			ServerSideTools:  mask&1 != 0,
			UpfrontResearch:  mask&2 != 0,
			ToolCalling:      mask&4 != 0,
			StructuredOutput: mask&8 != 0,
		}
		cfg := &config.Config{Strategy: sc}
		assert.Equal(t, SelectStrategy(FeaturesFromConfig(sc)) == Direct, cfg.DirectJSON(), "%+v", sc)
	}
}
