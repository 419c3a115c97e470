package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertJobCreatesAndUpdates(t *testing.T) {
	tr := NewTracker()
	tr.UpsertJob("a", Pending, 0)
	tr.UpsertJob("b", InProgress, 10)
	tr.UpsertJob("a", Completed, 150)

	jobs := tr.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{Tag: "a", Name: "a", Status: Completed, Percent: 100}, jobs[0])
	assert.Equal(t, Job{Tag: "b", Name: "b", Status: InProgress, Percent: 10}, jobs[1])
}

func TestRename(t *testing.T) {
	tr := NewTracker()
	tr.UpsertJob("a", Pending, 0)
	tr.Rename("a", "Reading guide")
	tr.Rename("missing", "nope")

	jobs := tr.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "Reading guide", jobs[0].Name)
}

func TestInsertBefore(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		want    []string
	}{
		{"only terminal", []string{TagLLMAnalysis}, []string{"new", TagLLMAnalysis}},
		{"terminal last", []string{"x", "y", "z", TagLLMAnalysis}, []string{"x", "y", "z", "new", TagLLMAnalysis}},
		{"terminal middle", []string{"x", TagLLMAnalysis, "z"}, []string{"x", "new", TagLLMAnalysis, "z"}},
		{"missing reference", []string{"x"}, []string{"x", "new"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, tag := range tt.initial {
				tr.UpsertJob(tag, Pending, 0)
			}
			tr.InsertBefore(TagLLMAnalysis, Job{Tag: "new"})
			assert.Equal(t, tt.want, tr.Jobs().Tags())
		})
	}
}

func TestInsertBeforeMovesExistingTag(t *testing.T) {
	tr := NewTracker()
	tr.UpsertJob(TagLLMAnalysis, Pending, 0)
	tr.UpsertJob("late", InProgress, 20)

	tr.InsertBefore(TagLLMAnalysis, Job{Tag: "late", Status: Completed, Percent: 100})

	assert.Equal(t, []string{"late", TagLLMAnalysis}, tr.Jobs().Tags())
	j, ok := tr.Jobs().Find("late")
	require.True(t, ok)
	assert.Equal(t, Completed, j.Status)
}

func TestMergePlacesChildJobsAfterAnchor(t *testing.T) {
	parent := NewTracker()
	parent.UpsertJob(TagWebSearch, Pending, 0)
	parent.UpsertJob(TagLLMAnalysis, Pending, 0)

	child := NewTracker()
	child.UpsertJob(TagWebSearch, Completed, 100)
	child.UpsertJob(ArticleTag(0), Completed, 100)
	child.UpsertJob(ArticleTag(1), Failed, 100)
	child.Rename(ArticleTag(0), "Build guide")

	parent.Merge(child)

	jobs := parent.Jobs()
	assert.Equal(t, []string{TagWebSearch, "article-0", "article-1", TagLLMAnalysis}, jobs.Tags())
	ws, _ := jobs.Find(TagWebSearch)
	assert.Equal(t, Completed, ws.Status)
	a0, _ := jobs.Find("article-0")
	assert.Equal(t, "Build guide", a0.Name)
}

func TestMergeIsIdempotent(t *testing.T) {
	build := func() *Tracker {
		tr := NewTracker()
		tr.UpsertJob(TagWebSearch, InProgress, 0)
		tr.UpsertJob(TagLLMAnalysis, Pending, 0)
		return tr
	}
	child := NewTracker()
	child.UpsertJob(TagWebSearch, Completed, 100)
	child.UpsertJob(ArticleTag(0), InProgress, 50)
	child.UpsertJob("orphan", Pending, 0)

	once := build()
	once.Merge(child)

	twice := build()
	twice.Merge(child)
	twice.Merge(child)

	assert.Equal(t, once.Jobs(), twice.Jobs())
}

func TestMergeWithoutAnchorAppends(t *testing.T) {
	parent := NewTracker()
	parent.UpsertJob(TagLLMAnalysis, Pending, 0)

	child := NewTracker()
	child.UpsertJob("x", Pending, 0)
	child.UpsertJob("y", Pending, 0)
	parent.Merge(child)
	parent.Merge(nil)

	assert.Equal(t, []string{TagLLMAnalysis, "x", "y"}, parent.Jobs().Tags())
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.UpsertJob("a", Pending, 0)

	var got Snapshot
	tr.Snapshot(func(s Snapshot) { got = s })
	tr.Snapshot(nil)
	require.Len(t, got, 1)

	got[0].Status = Failed
	j, _ := tr.Jobs().Find("a")
	assert.Equal(t, Pending, j.Status)
}

func TestSnapshotHelpers(t *testing.T) {
	assert.False(t, Snapshot(nil).AllCompleted())
	s := Snapshot{{Tag: "a", Status: Completed}, {Tag: "b", Status: Completed}}
	assert.True(t, s.AllCompleted())
	s[1].Status = Failed
	assert.False(t, s.AllCompleted())
	_, ok := s.Find("zzz")
	assert.False(t, ok)
}

func TestWebSearchTag(t *testing.T) {
	assert.Equal(t, TagWebSearch, WebSearchTag(0))
	assert.Equal(t, "web-search-1", WebSearchTag(1))
	assert.Equal(t, "web-search-2", WebSearchTag(2))
}
