// Package reader 抓取网页并用 readability 提取正文
package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// 正文上限，避免撑爆模型上下文
const maxBodyBytes = 4 << 20

// Reader 文章读取能力
type Reader interface {
	Read(ctx context.Context, url string) (string, error)
}

// Readability 基于 go-readability 的实现，返回正文 HTML
type Readability struct {
	client *http.Client
}

// NewReadability 创建读取器，timeout 为单次抓取超时
func NewReadability(timeout time.Duration) *Readability {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Readability{client: &http.Client{Timeout: timeout}}
}

var _ Reader = (*Readability)(nil)

// Read 抓取 URL 并提取正文，正文 HTML 为空时退回纯文本
func (r *Readability) Read(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || pageURL.Host == "" {
		return "", fmt.Errorf("invalid article url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(res.Body, maxBodyBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	if strings.TrimSpace(article.Content) != "" {
		return article.Content, nil
	}
	if strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}
	return "", fmt.Errorf("no readable content at %s", pageURL)
}
