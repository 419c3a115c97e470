package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search"
)

func TestSearchSendsExcludeDomains(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{Title: "Guide", URL: "https://example.com/guide", Content: "snippet", Score: 0.9},
		}})
	}))
	defer srv.Close()

	c := NewClient("key", nil)
	c.endpoint = srv.URL

	resp, err := c.Search(context.Background(), &search.Request{
		Query:          "best melee build",
		GameName:       "Warframe",
		MaxResults:     8,
		ExcludeDomains: []string{"reddit.com"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "snippet", resp.Results[0].Snippet)
	assert.Equal(t, 0.9, resp.Results[0].Score)

	assert.Equal(t, "Warframe best melee build", got.Query)
	assert.Equal(t, 8, got.MaxResults)
	assert.Equal(t, []string{"reddit.com"}, got.ExcludeDomains)
	assert.Equal(t, "basic", got.SearchDepth)
}

func TestSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("key", nil)
	c.endpoint = srv.URL

	_, err := c.Search(context.Background(), &search.Request{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
