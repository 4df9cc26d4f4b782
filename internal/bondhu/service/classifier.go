package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// MatchKind 분류 규칙 매칭 방식
type MatchKind string

// MatchEquals 등: 매칭 방식 상수
const (
	MatchEquals   MatchKind = "equals"
	MatchContains MatchKind = "contains"
	MatchPrefix   MatchKind = "prefix"
)

// ClassificationRule 키 패턴 → 중요도/카테고리
type ClassificationRule struct {
	Pattern    string           `yaml:"pattern"`
	Match      MatchKind        `yaml:"match"`
	Importance model.Importance `yaml:"importance"`
	Category   string           `yaml:"category"`
}

// Classification 분류 결과
type Classification struct {
	Importance model.Importance `yaml:"importance"`
	Category   string           `yaml:"category"`
}

type ruleTable struct {
	Rules   []ClassificationRule `yaml:"rules"`
	Default Classification       `yaml:"default"`
}

// Classifier 순서가 있는 규칙표. 첫 번째로 일치한 규칙을 사용한다.
type Classifier struct {
	rules    []ClassificationRule
	fallback Classification
}

// NewClassifierFromYAML 규칙표 YAML 로 Classifier 를 만든다.
func NewClassifierFromYAML(content string) (*Classifier, error) {
	var table ruleTable
	if err := yaml.Unmarshal([]byte(content), &table); err != nil {
		return nil, fmt.Errorf("unmarshal classification rules failed: %w", err)
	}

	for i, rule := range table.Rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("classification rule %d: empty pattern", i)
		}
		switch rule.Match {
		case MatchEquals, MatchContains, MatchPrefix:
		case "":
			table.Rules[i].Match = MatchContains
		default:
			return nil, fmt.Errorf("classification rule %d: unknown match %q", i, rule.Match)
		}
		if !rule.Importance.Valid() {
			return nil, fmt.Errorf("classification rule %d: invalid importance %q", i, rule.Importance)
		}
		table.Rules[i].Pattern = foldKey(rule.Pattern)
	}

	if !table.Default.Importance.Valid() {
		table.Default.Importance = model.ImportanceLow
	}
	if table.Default.Category == "" {
		table.Default.Category = "other"
	}

	return &Classifier{rules: table.Rules, fallback: table.Default}, nil
}

// Classify 키를 분류한다. 대소문자는 구분하지 않는다.
func (c *Classifier) Classify(key string) Classification {
	folded := foldKey(key)
	for _, rule := range c.rules {
		if rule.matches(folded) {
			return Classification{Importance: rule.Importance, Category: rule.Category}
		}
	}
	return c.fallback
}

// Rules 규칙표 사본
func (c *Classifier) Rules() []ClassificationRule {
	return append([]ClassificationRule(nil), c.rules...)
}

func (r ClassificationRule) matches(key string) bool {
	switch r.Match {
	case MatchEquals:
		return key == r.Pattern
	case MatchPrefix:
		return strings.HasPrefix(key, r.Pattern)
	default:
		return strings.Contains(key, r.Pattern)
	}
}

// foldKey: cases.Caser 는 상태를 가지므로 호출마다 새로 만든다.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
