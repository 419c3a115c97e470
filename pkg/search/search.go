package search

import "context"

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query          string
	GameName       string   // 游戏名提示，可为空
	MaxResults     int
	ExcludeDomains []string // 需要排除的站点，例如社交媒体
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title   string
	URL     string
	Snippet string
	Score   float64
}

// SocialMediaDomains 调研时默认排除的社交媒体站点
var SocialMediaDomains = []string{
	"reddit.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"youtube.com",
	"discord.com",
	"pinterest.com",
}

// Limit 截断到最多 n 条，n <= 0 时不截断
func (r *Response) Limit(n int) []Result {
	if r == nil {
		return nil
	}
	if n <= 0 || len(r.Results) <= n {
		return r.Results
	}
	return r.Results[:n]
}
