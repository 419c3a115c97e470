// Package extract 从模型输出的原始文本中定位并解析结构化的 Recommendation。
package extract

import (
	"strings"
)

const (
	findingsOpen  = "<findings>"
	findingsClose = "</findings>"
	jsonFence     = "```json"
	fence         = "```"
)

// Extractor 从文本中截取候选 JSON，未命中时返回 ok=false
type Extractor struct {
	Name string
	Fn   func(text string) (string, bool)
}

// DefaultChain 按顺序尝试，第一个命中的结果生效。
// 最后的 WholeText 总是命中：没有任何标记时整段文本被当作 JSON，
// 解析失败会以 ErrDeserialization 暴露，而不是降级结果。
var DefaultChain = []Extractor{
	{Name: "findings", Fn: FindingsBlock},
	{Name: "json-fence", Fn: JSONFence},
	{Name: "whole-text", Fn: WholeText},
}

// FindingsBlock 截取 <findings> 与 </findings> 之间的内容，标记大小写不敏感。
// 闭合标记必须出现在开启标记之后。
func FindingsBlock(text string) (string, bool) {
	start := indexFold(text, findingsOpen)
	if start < 0 {
		return "", false
	}
	bodyStart := start + len(findingsOpen)
	end := indexFold(text[bodyStart:], findingsClose)
	if end < 0 {
		return "", false
	}
	return text[bodyStart : bodyStart+end], true
}

// JSONFence 截取 ```json 与其后第一个 ``` 之间的内容，去掉开头的一个换行
func JSONFence(text string) (string, bool) {
	start := strings.Index(text, jsonFence)
	if start < 0 {
		return "", false
	}
	bodyStart := start + len(jsonFence)
	end := strings.Index(text[bodyStart:], fence)
	if end < 0 {
		return "", false
	}
	body := text[bodyStart : bodyStart+end]
	if strings.HasPrefix(body, "\r\n") {
		body = body[2:]
	} else if strings.HasPrefix(body, "\n") {
		body = body[1:]
	}
	return body, true
}

// WholeText 原样返回整段文本
func WholeText(text string) (string, bool) {
	return text, true
}

// indexFold 按 ASCII 大小写不敏感查找 marker，返回的偏移对应原始字节
func indexFold(s, marker string) int {
	n := len(marker)
	for i := 0; i+n <= len(s); i++ {
		if asciiEqualFold(s[i:i+n], marker) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Run 依次执行 chain，返回命中的内容和 extractor 名称
func Run(chain []Extractor, text string) (string, string) {
	for _, ex := range chain {
		if out, ok := ex.Fn(text); ok {
			return out, ex.Name
		}
	}
	return "", ""
}
