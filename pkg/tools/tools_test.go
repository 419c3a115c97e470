package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/progress"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search"
)

type mockSearcher struct {
	results []search.Result
	err     error
	last    *search.Request
}

func (m *mockSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &search.Response{Results: m.results}, nil
}

type mockReader struct {
	pages map[string]string
}

func (m *mockReader) Read(_ context.Context, url string) (string, error) {
	page, ok := m.pages[url]
	if !ok {
		return "", errors.New("404")
	}
	return page, nil
}

type passConverter struct{}

func (passConverter) Convert(html string) (string, error) { return html, nil }

func newTestSession(t *testing.T, s *mockSearcher, r *mockReader) (*Session, *progress.Tracker) {
	t.Helper()
	tracker := progress.NewTracker()
	tracker.UpsertJob(progress.TagLLMAnalysis, progress.InProgress, 0)
	deps := Deps{Searcher: s, MaxResults: 3}
	if r != nil {
		deps.Reader = r
		deps.Converter = passConverter{}
	}
	sess, err := NewSession(deps, "Warframe", tracker, nil, nil)
	require.NoError(t, err)
	return sess, tracker
}

func call(name, args string) schema.ToolCall {
	return schema.ToolCall{ID: "call_1", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func TestInfos(t *testing.T) {
	sess, _ := newTestSession(t, &mockSearcher{}, &mockReader{})
	infos, err := sess.Infos(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, NameSearchSummary, infos[0].Name)
	assert.Equal(t, NameSearchStructured, infos[1].Name)
	assert.Equal(t, NameReadArticle, infos[2].Name)

	noReader, _ := newTestSession(t, &mockSearcher{}, nil)
	infos, err = noReader.Infos(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestSearchSummaryRecordsResultsAndProgress(t *testing.T) {
	s := &mockSearcher{results: []search.Result{
		{Title: "Build guide", URL: "https://wiki/a", Snippet: "use viral"},
		{Title: "No snippet", URL: "https://wiki/b"},
	}}
	sess, tracker := newTestSession(t, s, nil)

	out := sess.Execute(context.Background(), call(NameSearchSummary, `{"query":"best kuva weapon"}`))
	assert.Contains(t, out, "1. Build guide")
	assert.Contains(t, out, "https://wiki/a")

	assert.Equal(t, "best kuva weapon", s.last.Query)
	assert.Equal(t, "Warframe", s.last.GameName)
	assert.Equal(t, 3, s.last.MaxResults)

	assert.Equal(t, []string{progress.TagWebSearch, progress.TagLLMAnalysis}, tracker.Jobs().Tags())
	ws, _ := tracker.Jobs().Find(progress.TagWebSearch)
	assert.Equal(t, progress.Completed, ws.Status)

	results := sess.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "use viral", results[0].Content)
}

func TestSearchStructuredReturnsJSON(t *testing.T) {
	s := &mockSearcher{results: []search.Result{{Title: "T", URL: "https://u", Snippet: "s", Score: 0.7}}}
	sess, _ := newTestSession(t, s, nil)

	out := sess.Execute(context.Background(), call(NameSearchStructured, `{"query":"q"}`))
	var items []structuredItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, 0.7, items[0].Score)
}

func TestReadArticleReplacesSnippet(t *testing.T) {
	s := &mockSearcher{results: []search.Result{{Title: "Guide", URL: "https://wiki/a", Snippet: "short"}}}
	r := &mockReader{pages: map[string]string{"https://wiki/a": "full article body"}}
	sess, tracker := newTestSession(t, s, r)

	sess.Execute(context.Background(), call(NameSearchSummary, `{"query":"q"}`))
	out := sess.Execute(context.Background(), call(NameReadArticle, `{"url":"https://wiki/a"}`))
	assert.Equal(t, "full article body", out)

	assert.Equal(t, []string{progress.TagWebSearch, "article-0", progress.TagLLMAnalysis}, tracker.Jobs().Tags())
	art, _ := tracker.Jobs().Find("article-0")
	assert.Equal(t, "Guide", art.Name)
	assert.Equal(t, progress.Completed, art.Status)

	results := sess.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "full article body", results[0].Content)
	assert.Equal(t, "Guide", results[0].Title)
}

func TestToolErrorsAreContained(t *testing.T) {
	s := &mockSearcher{err: errors.New("quota exceeded")}
	r := &mockReader{pages: map[string]string{}}
	sess, tracker := newTestSession(t, s, r)

	out := sess.Execute(context.Background(), call(NameSearchSummary, `{"query":"q"}`))
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "quota exceeded")
	ws, _ := tracker.Jobs().Find(progress.TagWebSearch)
	assert.Equal(t, progress.Failed, ws.Status)

	out = sess.Execute(context.Background(), call(NameReadArticle, `{"url":"https://gone"}`))
	assert.Contains(t, out, "error:")
	art, _ := tracker.Jobs().Find("article-0")
	assert.Equal(t, progress.Failed, art.Status)
	assert.Equal(t, "https://gone", art.Name)

	assert.Contains(t, sess.Execute(context.Background(), call("delete_everything", `{}`)), "unknown tool")
	assert.Contains(t, sess.Execute(context.Background(), call(NameSearchSummary, `not json`)), "invalid arguments")
	assert.Contains(t, sess.Execute(context.Background(), call(NameSearchSummary, `{"query":"  "}`)), "query is required")
	assert.Empty(t, sess.Results())
}

func TestNewSessionRequiresSearcher(t *testing.T) {
	_, err := NewSession(Deps{}, "", nil, nil, nil)
	assert.Error(t, err)
}

func TestEachSearchGetsItsOwnJob(t *testing.T) {
	s := &mockSearcher{results: []search.Result{{Title: "T", URL: "https://u", Snippet: "s"}}}
	tracker := progress.NewTracker()
	tracker.UpsertJob(progress.TagLLMAnalysis, progress.InProgress, 0)
	var snaps []progress.Snapshot
	sink := func(snap progress.Snapshot) { snaps = append(snaps, snap) }
	sess, err := NewSession(Deps{Searcher: s}, "Warframe", tracker, sink, nil)
	require.NoError(t, err)

	sess.Execute(context.Background(), call(NameSearchSummary, `{"query":"first"}`))
	sess.Execute(context.Background(), call(NameSearchStructured, `{"query":"second"}`))

	second := progress.WebSearchTag(1)
	assert.Equal(t, []string{progress.TagWebSearch, second, progress.TagLLMAnalysis}, tracker.Jobs().Tags())
	for _, tag := range []string{progress.TagWebSearch, second} {
		last := -1
		for _, snap := range snaps {
			job, ok := snap.Find(tag)
			if !ok {
				continue
			}
			assert.GreaterOrEqual(t, job.Percent, last, tag)
			last = job.Percent
		}
		job, _ := tracker.Jobs().Find(tag)
		assert.Equal(t, progress.Completed, job.Status, tag)
	}
}
