package factory

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/config"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/search"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/searxng"
	"github.com/scornflake/mentor-game-analysis-sub000/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		// 默认回退逻辑：如果有 tavily key，则使用 tavily
		if cfg.Search.Tavily.APIKey != "" {
			provider = "tavily"
		} else {
			return nil, fmt.Errorf("search provider not configured")
		}
	}

	limiter := newLimiter(cfg.Concurrency)

	switch provider {
	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey, limiter), nil

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout, limiter), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}

// newLimiter 未配置 RPM 时不限速
func newLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	if c.RPM <= 0 {
		return nil
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), burst)
}
