// Package repository 는 Bondhu 기억/활동 데이터를 GORM으로 저장·조회한다.
package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	cerrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/errors"
)

// Repository: DB 접근을 위한 GORM 기반 리포지토리
// 메서드들은 도메인별 파일로 분리됨:
//   - messages.go: 대화 턴 기록/조회
//   - activity.go: 활동 누적, 연속 기록, 활동 점수
//   - achievements.go: 업적 카탈로그
//   - memories.go, memory_index.go: 대화 기억과 보조 인덱스
//   - summary_marks.go: 요약 워터마크
//   - user_memories.go: 사용자 장기 사실
//   - views.go: 세션 개요/기억 통계 조회
//
// 모든 조회/쓰기는 호출자가 넘긴 인증된 user_id로 필터링된다.
type Repository struct {
	db *gorm.DB
}

// New: 새로운 Repository 인스턴스를 생성한다.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB: 헬스체크 등에서 사용할 하위 gorm 핸들
func (r *Repository) DB() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.db
}

// AutoMigrate: 자동으로 DB 테이블 스키마를 마이그레이션한다.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("db is nil")
	}
	if err := r.db.WithContext(ctx).AutoMigrate(
		&ChatMessage{},
		&UserActivityStats{},
		&UserActivityDay{},
		&Achievement{},
		&ConversationMemory{},
		&MemoryIndexEntry{},
		&SessionSummaryMark{},
		&UserMemory{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// Ping: DB 연결 상태 확인
func (r *Repository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("db is nil")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

func (r *Repository) ready() error {
	if r == nil || r.db == nil {
		return fmt.Errorf("db is nil")
	}
	return nil
}

func dbError(operation string, err error) error {
	return cerrors.DatabaseError{Operation: operation, Err: err}
}

// likePattern: 대소문자 무시 부분 일치 LIKE 패턴. %, _, \ 는 이스케이프한다.
func likePattern(fragment string) string {
	return "%" + likeLiteral(fragment) + "%"
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeLiteral: 소문자로 바꾸고 LIKE 와일드카드를 이스케이프한다.
func likeLiteral(s string) string {
	return likeReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}
