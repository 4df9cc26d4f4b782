package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	maxExtractedKeyLen   = 255
	maxExtractedValueLen = 500
	extractionSource     = "chat"
)

// ExtractionRule 메시지 패턴 → 사실 키/값
type ExtractionRule struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	Key     string `yaml:"key"`
	Value   int    `yaml:"value"`

	re *regexp.Regexp
}

type activityBucket struct {
	Name  string   `yaml:"name"`
	Words []string `yaml:"words"`
}

type extractionTable struct {
	Rules           []ExtractionRule `yaml:"rules"`
	Activities      []activityBucket `yaml:"activities"`
	ActivityDefault string           `yaml:"activity_default"`
}

// Extractor 사용자 메시지에서 장기 사실을 뽑는다. 규칙은 순서대로 평가하고 같은 키는 먼저 나온 값을 쓴다.
type Extractor struct {
	rules           []ExtractionRule
	activities      []activityBucket
	activityDefault string
}

// NewExtractorFromYAML 패턴표 YAML 로 Extractor 를 만든다.
func NewExtractorFromYAML(content string) (*Extractor, error) {
	var table extractionTable
	if err := yaml.Unmarshal([]byte(content), &table); err != nil {
		return nil, fmt.Errorf("unmarshal extraction rules failed: %w", err)
	}

	for i, rule := range table.Rules {
		if strings.TrimSpace(rule.Pattern) == "" || strings.TrimSpace(rule.Key) == "" {
			return nil, fmt.Errorf("extraction rule %d: pattern and key are required", i)
		}
		re, err := regexp.Compile(`(?i)\b` + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("extraction rule %d: compile pattern failed: %w", i, err)
		}
		if rule.Value < 1 || rule.Value > re.NumSubexp() {
			return nil, fmt.Errorf("extraction rule %d: value group %d out of range", i, rule.Value)
		}
		table.Rules[i].re = re
	}
	for i, bucket := range table.Activities {
		for j, w := range bucket.Words {
			table.Activities[i].Words[j] = strings.ToLower(w)
		}
	}
	if table.ActivityDefault == "" {
		table.ActivityDefault = "general"
	}

	return &Extractor{
		rules:           table.Rules,
		activities:      table.Activities,
		activityDefault: table.ActivityDefault,
	}, nil
}

// Extract 메시지에서 찾은 사실 목록. 추출 순서를 유지한다.
func (e *Extractor) Extract(message string) []UserMemoryInput {
	if e == nil || strings.TrimSpace(message) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []UserMemoryInput
	for _, rule := range e.rules {
		for _, groups := range rule.re.FindAllStringSubmatch(message, -1) {
			value := cleanExtractedValue(groups[rule.Value])
			if value == "" {
				continue
			}
			key := e.expandKey(rule.Key, groups, value)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, UserMemoryInput{
				Key:   key,
				Value: value,
				Metadata: map[string]any{
					"source": extractionSource,
					"kind":   rule.Kind,
				},
			})
		}
	}
	return out
}

func (e *Extractor) expandKey(template string, groups []string, value string) string {
	key := template
	for i := len(groups) - 1; i >= 1; i-- {
		key = strings.ReplaceAll(key, "{"+strconv.Itoa(i)+"}", keyPart(groups[i]))
	}
	if strings.Contains(key, "{activity}") {
		key = strings.ReplaceAll(key, "{activity}", e.activityOf(value))
	}
	if len(key) > maxExtractedKeyLen || strings.HasSuffix(key, "_") {
		return ""
	}
	return key
}

func (e *Extractor) activityOf(value string) string {
	lower := strings.ToLower(value)
	for _, bucket := range e.activities {
		for _, w := range bucket.Words {
			if strings.Contains(lower, w) {
				return bucket.Name
			}
		}
	}
	return e.activityDefault
}

func keyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func cleanExtractedValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,!?;:'\" ")
	if utf8.RuneCountInString(s) > maxExtractedValueLen {
		s = string([]rune(s)[:maxExtractedValueLen])
	}
	return s
}
