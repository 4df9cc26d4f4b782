// Package errors: Bondhu 기억/활동 도메인에 특화된 에러 타입들을 정의한다.
// 공통 에러 타입(RedisError, DatabaseError 등)은 common/errors 패키지를 직접 사용한다.
package errors

import (
	stderrors "errors"
	"fmt"
)

// InvalidArgumentError: 입력값이 도메인 규칙을 위반했을 때 발생하는 에러
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e InvalidArgumentError) Error() string {
	if e.Field == "" {
		return "invalid argument: " + e.Reason
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

// NotFoundError: 대상 리소스를 찾을 수 없을 때 발생하는 에러
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found id=%s", e.Resource, e.ID)
}

// ErrSummaryAlreadyClaimed: 같은 메시지 수 구간의 요약이 이미 선점된 경우
var ErrSummaryAlreadyClaimed = stderrors.New("summary already claimed")

// Invalid: InvalidArgumentError 생성 헬퍼
func Invalid(field, reason string) error {
	return InvalidArgumentError{Field: field, Reason: reason}
}

// IsInvalidArgument: err 체인에 InvalidArgumentError가 있는지 확인한다.
func IsInvalidArgument(err error) bool {
	var target InvalidArgumentError
	return stderrors.As(err, &target)
}

// IsNotFound: err 체인에 NotFoundError가 있는지 확인한다.
func IsNotFound(err error) bool {
	var target NotFoundError
	return stderrors.As(err, &target)
}
