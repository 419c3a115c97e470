package model

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AnalysisRequest 一次截图分析请求，创建后只读
type AnalysisRequest struct {
	image    []byte
	mimeType string
	prompt   string
	gameName string
}

// NewAnalysisRequest 创建分析请求，image 会被复制一份
// mimeType 为空时根据图片内容推断
func NewAnalysisRequest(image []byte, mimeType, prompt, gameName string) *AnalysisRequest {
	img := make([]byte, len(image))
	copy(img, image)
	if strings.TrimSpace(mimeType) == "" && len(img) > 0 {
		mimeType = http.DetectContentType(img)
	}
	return &AnalysisRequest{
		image:    img,
		mimeType: mimeType,
		prompt:   prompt,
		gameName: strings.TrimSpace(gameName),
	}
}

// Image 返回图片数据的副本
func (r *AnalysisRequest) Image() []byte {
	out := make([]byte, len(r.image))
	copy(out, r.image)
	return out
}

func (r *AnalysisRequest) ImageSize() int   { return len(r.image) }
func (r *AnalysisRequest) MimeType() string { return r.mimeType }
func (r *AnalysisRequest) Prompt() string   { return r.prompt }
func (r *AnalysisRequest) GameName() string { return r.gameName }

// Validate 校验请求，必须在任何网络调用之前执行
func (r *AnalysisRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrValidation)
	}
	if len(r.image) == 0 {
		return fmt.Errorf("%w: image is empty", ErrValidation)
	}
	if strings.TrimSpace(r.prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrValidation)
	}
	return nil
}

// Priority 建议优先级
type Priority int

const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// MarshalText 输出 High / Medium / Low
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePriority 大小写不敏感地匹配 high/medium/low，其余一律视为 Medium
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// RecommendationItem 单条建议
type RecommendationItem struct {
	Priority      Priority `json:"priority"`
	Action        string   `json:"action"`
	Reasoning     string   `json:"reasoning"`
	Context       string   `json:"context"`
	ReferenceLink string   `json:"referenceLink,omitempty"`
}

// ResearchResult 调研得到的一篇资料
type ResearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Recommendation 最终分析结果
type Recommendation struct {
	Analysis        string               `json:"analysis"`
	Summary         string               `json:"summary"`
	Confidence      float64              `json:"confidence"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	ProviderUsed    string               `json:"providerUsed"`
	Recommendations []RecommendationItem `json:"recommendations"`
	SearchResults   []ResearchResult     `json:"searchResults,omitempty"`
}

// ClampConfidence 把置信度限制在 [0,1]
func ClampConfidence(c float64) float64 {
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
