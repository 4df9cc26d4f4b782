package llmrest

import (
	"context"
	"fmt"
)

// Chat: 프롬프트와 대화 이력으로 응답 텍스트를 생성합니다.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.Post(ctx, "/api/llm/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Structured: JSON 스키마에 맞춘 응답을 생성해 out에 디코딩합니다.
func (c *Client) Structured(ctx context.Context, req StructuredRequest, out any) error {
	if req.JSONSchema == nil {
		return fmt.Errorf("json schema is required")
	}
	return c.Post(ctx, "/api/llm/structured", req, out)
}
