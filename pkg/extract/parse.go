package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
)

// 反序列化失败时日志中保留的最大字符数
const previewLimit = 500

// DegradedSummary 模型没有输出可解析内容时的说明
const DegradedSummary = "The model returned no structured findings for this screenshot."

// wireRecommendation 面向模型的 JSON 结构
type wireRecommendation struct {
	Analysis        string     `json:"analysis"`
	Summary         string     `json:"summary"`
	Confidence      float64    `json:"confidence"`
	Recommendations []wireItem `json:"recommendations"`
}

type wireItem struct {
	Priority      string `json:"priority"`
	Action        string `json:"action"`
	Reasoning     string `json:"reasoning"`
	Context       string `json:"context"`
	ReferenceLink string `json:"referenceLink"`
}

// Parse 对流式累积文本执行默认提取链并解析。
// 提取结果为空时返回零置信度的降级结果（非错误）；
// 非空但无法解析时记录预览并返回 ErrDeserialization。
func Parse(text string) (*model.Recommendation, error) {
	return ParseWith(DefaultChain, text)
}

// ParseWith 使用指定的提取链
func ParseWith(chain []Extractor, text string) (*model.Recommendation, error) {
	candidate, name := Run(chain, text)
	if strings.TrimSpace(candidate) == "" {
		logger.Log.WithField("extractor", name).Warn("模型输出中没有可提取的内容，返回降级结果")
		return Degraded(), nil
	}
	rec, err := Decode(candidate)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"extractor": name,
			"length":    utf8.RuneCountInString(candidate),
		}).Errorf("推荐结果反序列化失败: %v, 内容预览: %s", err, logger.Truncate(candidate, previewLimit))
		return nil, err
	}
	return rec, nil
}

// Decode 直接把 JSON 文本解析为 Recommendation，允许外层包裹一个 markdown 代码块
func Decode(text string) (*model.Recommendation, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	// null、数组、标量都能通过 Unmarshal，必须是对象
	if !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", model.ErrDeserialization)
	}

	var wire wireRecommendation
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDeserialization, err)
	}

	rec := &model.Recommendation{
		Analysis:        wire.Analysis,
		Summary:         wire.Summary,
		Confidence:      model.ClampConfidence(wire.Confidence),
		Recommendations: make([]model.RecommendationItem, 0, len(wire.Recommendations)),
	}
	for _, it := range wire.Recommendations {
		rec.Recommendations = append(rec.Recommendations, model.RecommendationItem{
			Priority:      model.ParsePriority(it.Priority),
			Action:        it.Action,
			Reasoning:     it.Reasoning,
			Context:       it.Context,
			ReferenceLink: strings.TrimSpace(it.ReferenceLink),
		})
	}
	return rec, nil
}

// Degraded 零置信度、无建议的结果
func Degraded() *model.Recommendation {
	return &model.Recommendation{
		Summary:         DegradedSummary,
		Confidence:      0,
		Recommendations: []model.RecommendationItem{},
	}
}
