// Package tools 提供交给模型自主调用的本地工具：网页搜索（摘要 / 结构化）与文章阅读。
// 每次分析调用创建一个 Session，工具产生的调研结果和作业进度都记录在其中。
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/markdown"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/model"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/progress"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/reader"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search"
)

// 工具名称
const (
	NameSearchSummary    = "web_search_summary"
	NameSearchStructured = "web_search_structured"
	NameReadArticle      = "read_article"
)

const (
	defaultMaxResults = 5
	// maxArticleRunes 返回给模型的文章正文上限
	maxArticleRunes = 8000
)

// Deps 工具依赖的外部能力，Reader 与 Converter 为空时不提供 read_article
type Deps struct {
	Searcher   search.Searcher
	Reader     reader.Reader
	Converter  markdown.Converter
	MaxResults int
}

// Session 单次调用内的工具状态，不可跨调用复用，也不做并发保护
type Session struct {
	deps     Deps
	gameName string
	tracker  *progress.Tracker
	sink     progress.Sink
	log      *logrus.Entry

	tools    map[string]tool.InvokableTool
	order    []string
	results  []model.ResearchResult
	titles   map[string]string
	searches int
	articles int
}

// NewSession 创建工具会话。工具产生的作业插在 llm-analysis 之前。
func NewSession(deps Deps, gameName string, tracker *progress.Tracker, sink progress.Sink, log *logrus.Entry) (*Session, error) {
	if deps.Searcher == nil {
		return nil, fmt.Errorf("tools: searcher is required")
	}
	if deps.MaxResults <= 0 {
		deps.MaxResults = defaultMaxResults
	}
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	if log == nil {
		log = logrus.NewEntry(logger.Log)
	}
	s := &Session{
		deps:     deps,
		gameName: gameName,
		tracker:  tracker,
		sink:     sink,
		log:      log,
		tools:    make(map[string]tool.InvokableTool),
		titles:   make(map[string]string),
	}
	s.register(NameSearchSummary, &searchSummaryTool{s: s})
	s.register(NameSearchStructured, &searchStructuredTool{s: s})
	if deps.Reader != nil && deps.Converter != nil {
		s.register(NameReadArticle, &readArticleTool{s: s})
	}
	return s, nil
}

func (s *Session) register(name string, t tool.InvokableTool) {
	s.tools[name] = t
	s.order = append(s.order, name)
}

// Infos 按注册顺序返回工具描述，用于 model.WithTools
func (s *Session) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(s.order))
	for _, name := range s.order {
		info, err := s.tools[name].Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute 执行一次工具调用。执行失败时把错误描述作为工具结果返回给模型，不中断调用。
func (s *Session) Execute(ctx context.Context, call schema.ToolCall) string {
	name := call.Function.Name
	log := s.log.WithFields(logrus.Fields{"tool": name, "call_id": call.ID})

	t, ok := s.tools[name]
	if !ok {
		log.Warn("模型请求了未知工具")
		return fmt.Sprintf("error: unknown tool %q", name)
	}
	out, err := t.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		log.Warnf("工具执行失败: %v", err)
		return fmt.Sprintf("error: %v", err)
	}
	log.Debugf("工具执行完成，返回 %d 字节", len(out))
	return out
}

// Results 工具调用过程中收集到的调研结果，按首次出现顺序，同一 URL 只保留一条
func (s *Session) Results() []model.ResearchResult {
	out := make([]model.ResearchResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Session) record(res model.ResearchResult) {
	if res.Title == "" {
		res.Title = res.URL
	}
	for i := range s.results {
		if s.results[i].URL == res.URL {
			s.results[i] = res
			return
		}
	}
	s.results = append(s.results, res)
}

// setJob 不存在时插入到 llm-analysis 之前，再更新状态并推送快照
func (s *Session) setJob(tag, name string, status progress.Status, percent int) {
	if _, ok := s.tracker.Jobs().Find(tag); !ok {
		s.tracker.InsertBefore(progress.TagLLMAnalysis, progress.Job{Tag: tag, Name: name, Status: status, Percent: percent})
	} else {
		s.tracker.UpsertJob(tag, status, percent)
	}
	s.tracker.Snapshot(s.sink)
}

func (s *Session) search(ctx context.Context, argsJSON string) ([]search.Result, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	// 每次搜索一个作业，已完成的作业不再回到进行中
	tag := progress.WebSearchTag(s.searches)
	s.searches++
	s.setJob(tag, tag, progress.InProgress, 0)
	resp, err := s.deps.Searcher.Search(ctx, &search.Request{
		Query:          query,
		GameName:       s.gameName,
		MaxResults:     s.deps.MaxResults,
		ExcludeDomains: search.SocialMediaDomains,
	})
	if err != nil {
		s.setJob(tag, tag, progress.Failed, 100)
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	s.setJob(tag, tag, progress.Completed, 100)

	items := resp.Limit(s.deps.MaxResults)
	for _, item := range items {
		if item.Title != "" {
			s.titles[item.URL] = item.Title
		}
		if strings.TrimSpace(item.Snippet) != "" {
			s.record(model.ResearchResult{Title: item.Title, URL: item.URL, Content: item.Snippet})
		}
	}
	s.log.WithField("query", query).Infof("工具搜索返回 %d 条结果", len(items))
	return items, nil
}

var searchParams = schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
	"query": {
		Type:     schema.String,
		Desc:     "search query, in the language of the game's community",
		Required: true,
	},
})

type searchSummaryTool struct{ s *Session }

func (t *searchSummaryTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        NameSearchSummary,
		Desc:        "Search the web for guides and patch notes about the game. Returns a readable list of titles, URLs and snippets.",
		ParamsOneOf: searchParams,
	}, nil
}

func (t *searchSummaryTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	items, err := t.s.search(ctx, argumentsInJSON)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "no results", nil
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, item.Title, item.URL, strings.TrimSpace(item.Snippet))
	}
	return strings.TrimSpace(sb.String()), nil
}

type searchStructuredTool struct{ s *Session }

func (t *searchStructuredTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        NameSearchStructured,
		Desc:        "Search the web for guides and patch notes about the game. Returns a JSON array of {title, url, snippet, score}.",
		ParamsOneOf: searchParams,
	}, nil
}

type structuredItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

func (t *searchStructuredTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	items, err := t.s.search(ctx, argumentsInJSON)
	if err != nil {
		return "", err
	}
	out := make([]structuredItem, 0, len(items))
	for _, item := range items {
		out = append(out, structuredItem{Title: item.Title, URL: item.URL, Snippet: item.Snippet, Score: item.Score})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type readArticleTool struct{ s *Session }

func (t *readArticleTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameReadArticle,
		Desc: "Fetch a web page and return its main content as markdown. Use it on URLs returned by a search.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url": {
				Type:     schema.String,
				Desc:     "absolute http(s) URL of the article",
				Required: true,
			},
		}),
	}, nil
}

func (t *readArticleTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	s := t.s
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	url := strings.TrimSpace(args.URL)
	if url == "" {
		return "", fmt.Errorf("url is required")
	}

	tag := progress.ArticleTag(s.articles)
	s.articles++
	title := s.titles[url]
	name := title
	if name == "" {
		name = url
	}
	s.setJob(tag, name, progress.InProgress, 0)

	html, err := s.deps.Reader.Read(ctx, url)
	if err != nil {
		s.setJob(tag, name, progress.Failed, 100)
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	s.setJob(tag, name, progress.InProgress, 50)

	content, err := s.deps.Converter.Convert(html)
	if err == nil && strings.TrimSpace(content) == "" {
		err = fmt.Errorf("empty article content")
	}
	if err != nil {
		s.setJob(tag, name, progress.Failed, 100)
		return "", fmt.Errorf("convert %s: %w", url, err)
	}
	s.setJob(tag, name, progress.Completed, 100)

	s.record(model.ResearchResult{Title: title, URL: url, Content: content})
	return logger.Truncate(content, maxArticleRunes), nil
}
