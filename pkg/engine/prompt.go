package engine

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/llm"
	dm "github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
)

const coachPrompt = `You are an experienced game coach. You are given a screenshot from %s and a question from the player.
Study the screenshot carefully (loadout, stats, HUD, map, build) and answer the question with concrete, actionable advice.

Respond with a single JSON object of this shape:
{
  "analysis": "what the screenshot shows and what stands out, in markdown",
  "summary": "one or two sentences with the most important takeaway",
  "confidence": 0.8,
  "recommendations": [
    {
      "priority": "high | medium | low",
      "action": "what to change",
      "reasoning": "why it helps",
      "context": "where in the screenshot this applies",
      "referenceLink": "URL of a source you relied on, optional"
    }
  ]
}
confidence is a number between 0 and 1. Order recommendations from most to least impactful.`

const findingsInstruction = `Think out loud if you need to, but put the final JSON object between <findings> and </findings> tags. Nothing inside the tags except the JSON.`

const jsonOnlyInstruction = `Output only the JSON object, without markdown fences or any other text.`

const toolsInstruction = `Before answering, use the search tools to look up current guides, patch notes and meta for this game, and read the most relevant articles. Base your recommendations on what you found and cite the URLs.`

const serverToolsInstruction = `You may search the web for current guides and patch notes about this game before answering. Cite the URLs you rely on.`

func gameLabel(gameName string) string {
	if strings.TrimSpace(gameName) == "" {
		return "a video game"
	}
	return gameName
}

// systemPrompt 按策略组合系统提示词
func systemPrompt(strategy Strategy, gameName string) string {
	parts := []string{fmt.Sprintf(coachPrompt, gameLabel(gameName))}
	switch strategy {
	case AutonomousTools:
		parts = append(parts, toolsInstruction)
	case PassthroughTools:
		parts = append(parts, serverToolsInstruction)
	}
	if strategy == Direct {
		parts = append(parts, jsonOnlyInstruction)
	} else {
		parts = append(parts, findingsInstruction)
	}
	return strings.Join(parts, "\n\n")
}

// buildMessages 系统提示词 + 可选的调研上下文 + 带截图的用户消息
func buildMessages(strategy Strategy, req *dm.AnalysisRequest, researchContext string) []*schema.Message {
	msgs := []*schema.Message{schema.SystemMessage(systemPrompt(strategy, req.GameName()))}
	if researchContext != "" {
		msgs = append(msgs, schema.SystemMessage(researchContext))
	}
	msgs = append(msgs, &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: req.Prompt()},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      llm.ImageDataURL(req.MimeType(), req.Image()),
					MIMEType: req.MimeType(),
				},
			},
		},
	})
	return msgs
}
