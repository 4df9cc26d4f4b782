package messageprovider

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider: YAML 메시지 트리에서 점(.) 경로로 문구를 찾아 {param} 템플릿을 치환한다.
type Provider struct {
	root map[string]any
}

// NewFromYAML: YAML 문자열 전체를 루트로 사용하는 Provider를 생성한다.
func NewFromYAML(yamlContent string) (*Provider, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(yamlContent), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml failed: %w", err)
	}

	if raw == nil {
		return &Provider{root: make(map[string]any)}, nil
	}

	root, ok := normalizeYAMLValue(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected yaml root type: %T", raw)
	}

	return &Provider{root: root}, nil
}

// NewFromYAMLAtPath: rootKey 하위 객체를 루트로 사용하는 Provider를 생성한다.
func NewFromYAMLAtPath(yamlContent string, rootKey string) (*Provider, error) {
	provider, err := NewFromYAML(yamlContent)
	if err != nil {
		return nil, err
	}

	rootKey = strings.TrimSpace(rootKey)
	if rootKey == "" {
		return provider, nil
	}

	value, ok := resolveDottedKey(provider.root, rootKey)
	if !ok {
		return nil, fmt.Errorf("yaml root key not found: %q", rootKey)
	}

	sub, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("yaml root key must be an object: %q (got %T)", rootKey, value)
	}

	return &Provider{root: sub}, nil
}

// Get: key에 해당하는 문구를 params로 치환해 반환한다. 키가 없으면 key 자체를 반환한다.
func (p *Provider) Get(key string, params ...Param) string {
	value, ok := p.lookup(key)
	if !ok {
		return key
	}

	template, ok := value.(string)
	if !ok {
		return fmt.Sprint(value)
	}
	return render(template, params)
}

// Strings: key가 문자열 목록이면 각 항목을 params로 치환해 반환한다. 없거나 목록이 아니면 nil.
func (p *Provider) Strings(key string, params ...Param) []string {
	value, ok := p.lookup(key)
	if !ok {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, render(fmt.Sprint(item), params))
	}
	return out
}

// Has: key가 존재하는지 확인한다.
func (p *Provider) Has(key string) bool {
	_, ok := p.lookup(key)
	return ok
}

func (p *Provider) lookup(key string) (any, bool) {
	if p == nil || strings.TrimSpace(key) == "" {
		return nil, false
	}
	return resolveDottedKey(p.root, key)
}

func render(template string, params []Param) string {
	out := template
	for _, param := range params {
		out = strings.ReplaceAll(out, "{"+param.Key+"}", fmt.Sprint(param.Value))
	}
	return out
}

// Param: 템플릿 치환 파라미터
type Param struct {
	Key   string
	Value any
}

// P: Param 생성 헬퍼
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

func resolveDottedKey(root map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var current any = root

	for _, part := range parts {
		nextMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := nextMap[part]
		if !ok {
			return nil, false
		}
		current = next
	}

	return current, true
}

func normalizeYAMLValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[k] = normalizeYAMLValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[fmt.Sprint(k)] = normalizeYAMLValue(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, vv := range typed {
			out = append(out, normalizeYAMLValue(vv))
		}
		return out
	default:
		return v
	}
}
