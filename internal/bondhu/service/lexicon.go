package service

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

type lexiconTopic struct {
	Topic      string   `yaml:"topic"`
	EntityType string   `yaml:"entity_type"`
	Keywords   []string `yaml:"keywords"`
}

type lexiconFile struct {
	Generic  []lexiconTopic `yaml:"generic"`
	Specific []lexiconTopic `yaml:"specific"`
	Mood     struct {
		Positive []string `yaml:"positive"`
		Negative []string `yaml:"negative"`
	} `yaml:"mood"`
	References []string `yaml:"references"`
}

// Lexicon 토픽/개체/기분/회상 표현 키워드 사전
type Lexicon struct {
	generic    []lexiconTopic
	specific   []lexiconTopic
	positive   []string
	negative   []string
	references []string
}

// NewLexiconFromYAML 사전 YAML 로 Lexicon 을 만든다.
func NewLexiconFromYAML(content string) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal([]byte(content), &file); err != nil {
		return nil, fmt.Errorf("unmarshal topic lexicon failed: %w", err)
	}

	normalizeEntries := func(entries []lexiconTopic) []lexiconTopic {
		out := make([]lexiconTopic, 0, len(entries))
		for _, e := range entries {
			topic := NormalizeTopic(e.Topic)
			if topic == "" || len(e.Keywords) == 0 {
				continue
			}
			out = append(out, lexiconTopic{Topic: topic, EntityType: e.EntityType, Keywords: normalizeAll(e.Keywords)})
		}
		return out
	}

	return &Lexicon{
		generic:    normalizeEntries(file.Generic),
		specific:   normalizeEntries(file.Specific),
		positive:   normalizeAll(file.Mood.Positive),
		negative:   normalizeAll(file.Mood.Negative),
		references: normalizeAll(file.References),
	}, nil
}

// ExtractTopics 구체적 관심사를 먼저, 넓은 범주를 나중에 담아 최대 maxTopics 개를 반환한다.
// 구체적 관심사는 개체로도 반환한다.
func (l *Lexicon) ExtractTopics(texts []string, maxTopics int) ([]string, []model.EntityRef) {
	joined := NormalizeTopic(strings.Join(texts, "\n"))
	if joined == "" {
		return nil, nil
	}

	var topics []string
	var entities []model.EntityRef
	add := func(topic string) bool {
		if maxTopics > 0 && len(topics) >= maxTopics {
			return false
		}
		if slices.Contains(topics, topic) {
			return false
		}
		topics = append(topics, topic)
		return true
	}

	for _, e := range l.specific {
		if containsAnyWord(joined, e.Keywords) && add(e.Topic) {
			entities = append(entities, model.EntityRef{Name: e.Topic, Type: e.EntityType})
		}
	}
	for _, e := range l.generic {
		if containsAnyWord(joined, e.Keywords) {
			add(e.Topic)
		}
	}
	return topics, entities
}

// DetectMood 긍정/부정 단어 수를 비교해 기분을 판정한다.
func (l *Lexicon) DetectMood(text string) model.Mood {
	normalized := NormalizeTopic(text)
	if normalized == "" {
		return model.MoodNeutral
	}
	pos := countWords(normalized, l.positive)
	neg := countWords(normalized, l.negative)
	switch {
	case pos > neg:
		return model.MoodPositive
	case neg > pos:
		return model.MoodNegative
	default:
		return model.MoodNeutral
	}
}

// HasReference 과거 대화를 가리키는 표현이 있는지 여부
func (l *Lexicon) HasReference(text string) bool {
	return containsAnyWord(NormalizeTopic(text), l.references)
}

// NormalizeTopic NFKC 정규화 후 소문자/공백 정리
func NormalizeTopic(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTopics 정규화 + 빈 값 제거 + 중복 제거 (첫 등장 순서 유지)
func NormalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		n := NormalizeTopic(t)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := NormalizeTopic(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAnyWord(text string, keywords []string) bool {
	return slices.ContainsFunc(keywords, func(k string) bool { return indexWord(text, k) >= 0 })
}

func countWords(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if indexWord(text, k) >= 0 {
			n++
		}
	}
	return n
}

// indexWord 단어 시작 경계에서 시작하는 keyword 위치. "play" 는 "playing" 에 일치하고 "replay" 에는 일치하지 않는다.
func indexWord(text, keyword string) int {
	if keyword == "" {
		return -1
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return -1
		}
		pos := offset + idx
		if pos == 0 || !isWordRune(lastRune(text[:pos])) {
			return pos
		}
		offset = pos + len(keyword)
		if offset >= len(text) {
			return -1
		}
	}
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
