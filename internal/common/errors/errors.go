// Package errors: 서비스 전체에서 공용으로 사용되는 인프라스트럭처 에러 타입들을 정의한다.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// RedisError: Redis 작업을 수행하는 도중 발생한 에러
type RedisError struct {
	Operation string
	Err       error
}

func (e RedisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("redis error operation=%s", e.Operation)
	}
	return fmt.Sprintf("redis error operation=%s: %v", e.Operation, e.Err)
}

func (e RedisError) Unwrap() error { return e.Err }

// DatabaseError: 데이터베이스(PostgreSQL 등) 작업을 수행하는 도중 발생한 에러
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("db error operation=%s", e.Operation)
	}
	return fmt.Sprintf("db error operation=%s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error { return e.Err }

// AccessDeniedError: 인증된 사용자가 다른 사용자의 자원에 접근할 때 발생하는 에러
type AccessDeniedError struct {
	Reason string
}

func (e AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// MalformedInputError: 입력 형식이 올바르지 않을 때 발생하는 에러
type MalformedInputError struct {
	Message string
}

func (e MalformedInputError) Error() string { return e.Message }

// RateLimitedError: 사용자별 요청 한도를 초과했을 때 발생하는 에러
type RateLimitedError struct {
	UserID     string
	Limit      int64
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: user=%s limit=%d retry_after=%s", e.UserID, e.Limit, e.RetryAfter)
}

// expectedUserBehaviorTypes: 사용자의 정상적인 패턴 내 실수로 간주되는 에러 타입들
var expectedUserBehaviorTypes = []func() any{
	func() any { return new(MalformedInputError) },
	func() any { return new(RateLimitedError) },
	func() any { return new(AccessDeniedError) },
}

// IsExpectedUserBehavior: 에러가 사용자의 예상된 실수인지 확인한다. (로그 레벨을 낮추는 용도)
// 도메인 특화 에러는 각 패키지에서 확장하여 사용한다.
func IsExpectedUserBehavior(err error) bool {
	if err == nil {
		return false
	}
	for _, targetFn := range expectedUserBehaviorTypes {
		if errors.As(err, targetFn()) {
			return true
		}
	}
	return false
}
