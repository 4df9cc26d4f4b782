package llmrest

// HistoryEntry: 대화 이력 항목 (role: user|assistant)
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest: /api/llm/chat 요청 본문
type ChatRequest struct {
	Prompt       string         `json:"prompt"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	History      []HistoryEntry `json:"history,omitempty"`
	Model        string         `json:"model,omitempty"`
	Task         string         `json:"task,omitempty"`
}

// ChatResponse: /api/llm/chat 응답 본문
type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// StructuredRequest: /api/llm/structured 요청 본문 (JSON 스키마에 맞춘 응답 요청)
type StructuredRequest struct {
	Prompt       string         `json:"prompt"`
	JSONSchema   map[string]any `json:"json_schema"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	History      []HistoryEntry `json:"history,omitempty"`
	Model        string         `json:"model,omitempty"`
}
