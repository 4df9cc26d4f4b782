// Package valkeyx: Valkey 클라이언트 공통 유틸리티 (연결, 키 생성, nil 체크).
package valkeyx

import "strings"

// BuildKey: prefix 뒤에 각 세그먼트를 ':'로 이어 붙여 키를 생성한다.
// 형식: {prefix}:{part1}:{part2}...
func BuildKey(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(part))
	}
	return b.String()
}

// EscapePattern: SCAN MATCH 패턴에서 특수문자(*?[]\)를 이스케이프한다.
func EscapePattern(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
