// Package redis 는 Bondhu 의 Valkey 캐시/요청 제한 저장소와 키 생성 함수를 정의한다.
package redis

import (
	"encoding/hex"
	"hash/fnv"
	"strconv"
	"strings"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/valkeyx"
)

const allSessions = "*all"

// historyKey 채팅 기록 페이지 캐시 키.
// 형식: bondhu:chat:history:{userID}:{sessionID|*all}:{limit}:{offset}
func historyKey(userID, sessionID string, limit, offset int) string {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = allSessions
	}
	return valkeyx.BuildKey(bconfig.RedisKeyHistoryPrefix, userID, sessionID, strconv.Itoa(limit), strconv.Itoa(offset))
}

// searchKey 메시지 검색 결과 캐시 키. 검색어는 해시로 줄인다.
// 형식: bondhu:chat:search:{userID}:{hash(lower(query))}:{limit}
func searchKey(userID, query string, limit int) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	return valkeyx.BuildKey(bconfig.RedisKeySearchPrefix, userID, hex.EncodeToString(h.Sum(nil)), strconv.Itoa(limit))
}

// userCachePatterns 사용자 캐시 키 SCAN 패턴 (기록, 검색)
func userCachePatterns(userID string) []string {
	escaped := escapeGlob(strings.TrimSpace(userID))
	return []string{
		bconfig.RedisKeyHistoryPrefix + ":" + escaped + ":*",
		bconfig.RedisKeySearchPrefix + ":" + escaped + ":*",
	}
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rateLimitKey 사용자별 고정 윈도우 카운터 키.
// 형식: bondhu:ratelimit:{userID}
func rateLimitKey(userID string) string {
	return valkeyx.BuildKey(bconfig.RedisKeyRatePrefix, userID)
}
