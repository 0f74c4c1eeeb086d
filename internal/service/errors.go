package service

import "errors"

// ErrEmbeddingUnavailable embedding 模型加载或编码失败
// 属于配置级错误：直接上抛，不重试
var ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

// ErrGenerationFailed 文本生成调用失败
// 仅聊天层对它做降级处理，其余调用方按结构性错误上抛
var ErrGenerationFailed = errors.New("text generation failed")

// ErrEmptyMessage 聊天消息为空
var ErrEmptyMessage = errors.New("message is empty")
