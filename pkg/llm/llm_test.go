package llm

import (
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
)

func screenshotMessage(t *testing.T) *schema.Message {
	t.Helper()
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "how do I improve?"},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{
				URL:      ImageDataURL("image/png", []byte{0x89, 'P', 'N', 'G'}),
				MIMEType: "image/png",
			}},
		},
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	u := ImageDataURL("image/jpeg", []byte("raw-bytes"))
	assert.Equal(t, "data:image/jpeg;base64,cmF3LWJ5dGVz", u)

	mimeType, data, err := ParseDataURL(u)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, []byte("raw-bytes"), data)
}

func TestParseDataURLErrors(t *testing.T) {
	for _, in := range []string{
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		_, _, err := ParseDataURL(in)
		assert.Error(t, err, in)
	}
}

func TestOptions(t *testing.T) {
	common, specific := getOptions(model.WithToolChoice(schema.ToolChoiceForbidden), WithJSONResponse())
	assert.True(t, toolsForbidden(common))
	assert.True(t, specific.jsonResponse)

	common, specific = getOptions()
	assert.False(t, toolsForbidden(common))
	assert.False(t, specific.jsonResponse)
}

func TestNamed(t *testing.T) {
	c := Named(nil, "openai/gpt-4o")
	assert.Equal(t, "openai/gpt-4o", c.Name())
}

func TestConvertToClaude(t *testing.T) {
	msgs, system, err := convertToClaude([]*schema.Message{
		schema.SystemMessage("you are a coach"),
		schema.SystemMessage("research context"),
		screenshotMessage(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "you are a coach\n\nresearch context", system)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 2)
	require.NotNil(t, msgs[0].Content[0].OfText)
	assert.Equal(t, "how do I improve?", msgs[0].Content[0].OfText.Text)
	assert.NotNil(t, msgs[0].Content[1].OfImage)
}

func TestConvertToClaudeRejects(t *testing.T) {
	_, _, err := convertToClaude([]*schema.Message{schema.ToolMessage("r", "call_1")})
	assert.Error(t, err)

	_, _, err = convertToClaude([]*schema.Message{schema.SystemMessage("only system")})
	assert.Error(t, err)
}

func TestClaudeBuildParams(t *testing.T) {
	c := &Claude{model: "claude-sonnet-4-5", maxTokens: 1024, serverTools: true}
	in := []*schema.Message{schema.UserMessage("hi")}

	params, err := c.buildParams(in)
	require.NoError(t, err)
	assert.Len(t, params.Tools, 1)
	assert.EqualValues(t, 1024, params.MaxTokens)

	params, err = c.buildParams(in, model.WithToolChoice(schema.ToolChoiceForbidden))
	require.NoError(t, err)
	assert.Empty(t, params.Tools)

	_, err = c.buildParams(in, model.WithTools([]*schema.ToolInfo{{Name: "web_search_summary"}}))
	assert.Error(t, err)
}

func TestConvertToGemini(t *testing.T) {
	contents, system, err := convertToGemini([]*schema.Message{
		schema.SystemMessage("you are a coach"),
		screenshotMessage(t),
		schema.AssistantMessage("earlier answer", nil),
	})
	require.NoError(t, err)
	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "you are a coach", system.Parts[0].Text)

	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestGeminiBuildRequest(t *testing.T) {
	in := []*schema.Message{schema.UserMessage("hi")}

	g := &Gemini{model: "gemini-2.5-flash"}
	_, cfg, err := g.buildRequest(in, WithJSONResponse())
	require.NoError(t, err)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Empty(t, cfg.Tools)

	g.serverTools = true
	_, cfg, err = g.buildRequest(in, WithJSONResponse())
	require.NoError(t, err)
	require.Len(t, cfg.Tools, 1)
	assert.NotNil(t, cfg.Tools[0].GoogleSearch)
	assert.Empty(t, cfg.ResponseMIMEType)

	_, _, err = g.buildRequest(in, model.WithTools([]*schema.ToolInfo{{Name: "read_article"}}))
	assert.Error(t, err)
}

func TestOpenAIConfigResponseFormat(t *testing.T) {
	cfg := config.LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk", MaxTokens: 1024, Timeout: 30}

	plain := openAIConfig(cfg, false)
	assert.Nil(t, plain.ResponseFormat)
	require.NotNil(t, plain.MaxTokens)
	assert.Equal(t, 1024, *plain.MaxTokens)
	assert.Nil(t, plain.Temperature)

	structured := openAIConfig(cfg, true)
	require.NotNil(t, structured.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, structured.ResponseFormat.Type)
}
