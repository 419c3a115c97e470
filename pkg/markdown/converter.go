// Package markdown 把文章 HTML 转为 markdown，便于注入到提示词
package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/scornflake/mentor-game-analysis-sub000/pkg/logger"
)

// Converter HTML→Markdown 转换能力
type Converter interface {
	Convert(html string) (string, error)
}

// HTMLConverter 基于 html-to-markdown 的实现
type HTMLConverter struct {
	conv *md.Converter
}

// NewHTMLConverter 创建转换器，domain 用于补全相对链接，可为空
func NewHTMLConverter(domain string) *HTMLConverter {
	return &HTMLConverter{conv: md.NewConverter(domain, true, nil)}
}

var _ Converter = (*HTMLConverter)(nil)

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
	blankRe = regexp.MustCompile(`\n{3,}`)
)

// Convert 转换失败或输出为空时退回去标签的纯文本
func (c *HTMLConverter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	converted, err := c.conv.ConvertString(html)
	if err != nil {
		logger.Log.Warnf("HTML 转 markdown 失败，使用纯文本: %v", err)
		return stripTags(html), nil
	}
	converted = strings.TrimSpace(blankRe.ReplaceAllString(converted, "\n\n"))
	if converted == "" {
		return stripTags(html), nil
	}
	return converted, nil
}

func stripTags(html string) string {
	s := tagRe.ReplaceAllString(html, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	r := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&#39;", "'", "&nbsp;", " ")
	return strings.TrimSpace(r.Replace(s))
}
