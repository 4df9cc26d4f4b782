package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/valkeyx"
)

const scanBatchSize = 200

// ChatCache 채팅 기록/검색 결과를 Valkey 에 JSON 으로 캐시한다.
// 새 메시지가 저장되면 사용자 키를 모두 무효화한다.
type ChatCache struct {
	client     valkey.Client
	historyTTL time.Duration
	searchTTL  time.Duration
	logger     *slog.Logger
}

// NewChatCache 생성자. TTL 이 0 이하이면 해당 캐시는 항상 miss 로 동작한다.
func NewChatCache(client valkey.Client, historyTTL, searchTTL time.Duration, logger *slog.Logger) *ChatCache {
	return &ChatCache{client: client, historyTTL: historyTTL, searchTTL: searchTTL, logger: logger}
}

// GetHistory 기록 페이지 조회
func (c *ChatCache) GetHistory(ctx context.Context, userID, sessionID string, limit, offset int) ([]model.ChatMessage, bool, error) {
	if c.historyTTL <= 0 {
		return nil, false, nil
	}
	return c.get(ctx, "chat_history_get", historyKey(userID, sessionID, limit, offset))
}

// SetHistory 기록 페이지 저장
func (c *ChatCache) SetHistory(ctx context.Context, userID, sessionID string, limit, offset int, messages []model.ChatMessage) error {
	if c.historyTTL <= 0 {
		return nil
	}
	return c.set(ctx, "chat_history_set", historyKey(userID, sessionID, limit, offset), messages, c.historyTTL)
}

// GetSearch 검색 결과 조회
func (c *ChatCache) GetSearch(ctx context.Context, userID, query string, limit int) ([]model.ChatMessage, bool, error) {
	if c.searchTTL <= 0 {
		return nil, false, nil
	}
	return c.get(ctx, "chat_search_get", searchKey(userID, query, limit))
}

// SetSearch 검색 결과 저장
func (c *ChatCache) SetSearch(ctx context.Context, userID, query string, limit int, messages []model.ChatMessage) error {
	if c.searchTTL <= 0 {
		return nil
	}
	return c.set(ctx, "chat_search_set", searchKey(userID, query, limit), messages, c.searchTTL)
}

// Invalidate 사용자의 기록/검색 캐시 키를 SCAN 으로 찾아 삭제한다.
func (c *ChatCache) Invalidate(ctx context.Context, userID string) error {
	deleted := 0
	for _, pattern := range userCachePatterns(userID) {
		var cursor uint64
		for {
			entry, err := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatchSize).Build()).AsScanEntry()
			if err != nil {
				return valkeyx.WrapRedisError("chat_cache_invalidate", err)
			}
			if len(entry.Elements) > 0 {
				if err := c.client.Do(ctx, c.client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
					return valkeyx.WrapRedisError("chat_cache_invalidate", err)
				}
				deleted += len(entry.Elements)
			}
			cursor = entry.Cursor
			if cursor == 0 {
				break
			}
		}
	}
	c.logger.Debug("chat_cache_invalidated", "user_id", userID, "keys", deleted)
	return nil
}

func (c *ChatCache) get(ctx context.Context, operation, key string) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkeyx.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, valkeyx.WrapRedisError(operation, err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		// 깨진 값은 miss 로 취급하고 다음 저장에서 덮어쓴다.
		c.logger.Warn("chat_cache_unmarshal_failed", "key", key, "err", err)
		return nil, false, nil
	}
	return messages, true, nil
}

func (c *ChatCache) set(ctx context.Context, operation, key string, messages []model.ChatMessage, ttl time.Duration) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal cached messages failed: %w", err)
	}

	cmd := c.client.B().Set().Key(key).Value(valkey.BinaryString(payload)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return valkeyx.WrapRedisError(operation, err)
	}
	return nil
}
