package model

import "errors"

var (
	// ErrValidation 请求不合法（空图片或空提示词），在任何网络调用前返回
	ErrValidation = errors.New("validation error")

	// ErrProvider LLM 或搜索后端调用失败，不在引擎内部重试
	ErrProvider = errors.New("provider error")

	// ErrDeserialization 提取到了文本但无法反序列化为 Recommendation
	ErrDeserialization = errors.New("deserialization error")
)
