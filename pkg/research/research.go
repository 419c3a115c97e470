// Package research 在模型调用之前完成 搜索 → 逐篇抓取/转换 的调研流程。
// 单篇失败只影响对应作业，不会中断整批。
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/markdown"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/progress"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/reader"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search"
)

// Mode 调研模式
type Mode int

const (
	// SummaryOnly 直接使用搜索摘要，不发起额外请求
	SummaryOnly Mode = iota
	// FullArticle 抓取原文并转为 markdown
	FullArticle
)

// ParseMode summary / full，其余按 SummaryOnly 处理
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "full") {
		return FullArticle
	}
	return SummaryOnly
}

func (m Mode) String() string {
	if m == FullArticle {
		return "full"
	}
	return "summary"
}

// DefaultMaxResults 单次调研的搜索结果上限
const DefaultMaxResults = 8

// Pipeline 调研子流程，只持有只读依赖，可被多个调用并发复用
type Pipeline struct {
	searcher   search.Searcher
	reader     reader.Reader
	converter  markdown.Converter
	mode       Mode
	maxResults int
}

// NewPipeline FullArticle 模式下 reader 与 converter 必须非空
func NewPipeline(searcher search.Searcher, rd reader.Reader, conv markdown.Converter, mode Mode, maxResults int) (*Pipeline, error) {
	if searcher == nil {
		return nil, fmt.Errorf("research: searcher is required")
	}
	if mode == FullArticle && (rd == nil || conv == nil) {
		return nil, fmt.Errorf("research: full article mode requires a reader and a converter")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Pipeline{
		searcher:   searcher,
		reader:     rd,
		converter:  conv,
		mode:       mode,
		maxResults: maxResults,
	}, nil
}

// Mode 当前调研模式
func (p *Pipeline) Mode() Mode { return p.mode }

// BuildQuery 由游戏名和用户提示词构造查询
func BuildQuery(gameName, prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	if gameName == "" {
		return prompt
	}
	return fmt.Sprintf("%s %s", gameName, prompt)
}

// Run 执行一次调研。返回成功的结果（保持搜索顺序）和子流程自己的 Tracker，
// 调用方负责把 Tracker 合并到父级。每次状态变化后都会向 sink 推送快照。
// 搜索失败是致命错误；单篇失败只标记对应作业为 Failed。
func (p *Pipeline) Run(ctx context.Context, gameName, prompt string, sink progress.Sink) ([]model.ResearchResult, *progress.Tracker, error) {
	tracker := progress.NewTracker()
	emit := func() { tracker.Snapshot(sink) }

	log := logger.Log.WithFields(logrus.Fields{"mode": p.mode.String(), "game": gameName})

	tracker.UpsertJob(progress.TagWebSearch, progress.InProgress, 0)
	emit()

	query := BuildQuery(gameName, prompt)
	resp, err := p.searcher.Search(ctx, &search.Request{
		Query:          query,
		GameName:       gameName,
		MaxResults:     p.maxResults,
		ExcludeDomains: search.SocialMediaDomains,
	})
	if err != nil {
		tracker.UpsertJob(progress.TagWebSearch, progress.Failed, 100)
		emit()
		return nil, tracker, fmt.Errorf("%w: search %q: %w", model.ErrProvider, query, err)
	}
	items := resp.Limit(p.maxResults)
	log.Infof("搜索完成，共 %d 条结果", len(items))

	tracker.UpsertJob(progress.TagWebSearch, progress.Completed, 100)
	// 一次性建出所有文章作业，界面可以立即显示批次大小
	for i, item := range items {
		tag := progress.ArticleTag(i)
		tracker.UpsertJob(tag, progress.Pending, 0)
		if item.Title != "" {
			tracker.Rename(tag, item.Title)
		}
	}
	emit()

	results := make([]model.ResearchResult, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, tracker, err
		}
		tag := progress.ArticleTag(i)
		res, err := p.processOne(ctx, tag, item, tracker, emit)
		if err != nil {
			if ctx.Err() != nil {
				tracker.UpsertJob(tag, progress.Failed, 100)
				emit()
				return results, tracker, ctx.Err()
			}
			log.WithField("url", item.URL).Warnf("资料处理失败，跳过: %v", err)
			tracker.UpsertJob(tag, progress.Failed, 100)
			emit()
			continue
		}
		tracker.UpsertJob(tag, progress.Completed, 100)
		emit()
		results = append(results, res)
	}

	log.Infof("调研完成，成功 %d/%d", len(results), len(items))
	return results, tracker, nil
}

// processOne 处理单条搜索结果，panic 也按单篇失败处理
func (p *Pipeline) processOne(ctx context.Context, tag string, item search.Result, tracker *progress.Tracker, emit func()) (res model.ResearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", item.URL, r)
		}
	}()

	tracker.UpsertJob(tag, progress.InProgress, 0)
	emit()

	res = model.ResearchResult{Title: item.Title, URL: item.URL}

	if p.mode == SummaryOnly {
		if strings.TrimSpace(item.Snippet) == "" {
			return res, fmt.Errorf("empty snippet for %s", item.URL)
		}
		res.Content = item.Snippet
		return res, nil
	}

	html, err := p.reader.Read(ctx, item.URL)
	if err != nil {
		return res, fmt.Errorf("read article: %w", err)
	}
	tracker.UpsertJob(tag, progress.InProgress, 50)
	emit()

	content, err := p.converter.Convert(html)
	if err != nil {
		return res, fmt.Errorf("convert article: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return res, fmt.Errorf("empty article content for %s", item.URL)
	}
	res.Content = content
	return res, nil
}

// FormatContext 把调研结果渲染为注入系统提示词的上下文
func FormatContext(results []model.ResearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("The following web research was gathered for this request. Prefer it over memory and cite the URL in referenceLink when a recommendation relies on it.\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "### Source %d: %s\nURL: %s\n\n%s\n\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return strings.TrimSpace(sb.String())
}
