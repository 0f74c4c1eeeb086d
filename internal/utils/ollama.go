package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OllamaClient 本地 Ollama embedding API 客户端
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaClient 创建 Ollama 客户端
func NewOllamaClient(host, model string) *OllamaClient {
	return &OllamaClient{
		host:  host,
		model: model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// embeddingRequest Ollama embedding API 请求结构
type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embeddingResponse Ollama embedding API 响应结构
type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embeddings 调用 Ollama 生成文本向量
func (c *OllamaClient) Embeddings(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model:  c.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/embeddings", c.host), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned error status: %d", resp.StatusCode)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response failed: %v", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return result.Embedding, nil
}
