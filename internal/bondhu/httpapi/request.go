package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	cerrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httputil"
)

const maxBodyBytes = 1 << 20

type (
	// ChatSendRequest 채팅 전송 요청 DTO
	ChatSendRequest struct {
		UserID    string `json:"user_id" validate:"required,max=128"`
		Message   string `json:"message" validate:"required,max=4000"`
		SessionID string `json:"session_id" validate:"omitempty,max=128"`
	}

	// EndSessionRequest 세션 종료 요청 DTO
	EndSessionRequest struct {
		UserID string `json:"user_id" validate:"required,max=128"`
	}

	// SummarizeRequest 수동 요약 요청 DTO
	SummarizeRequest struct {
		UserID    string `json:"user_id" validate:"required,max=128"`
		SessionID string `json:"session_id" validate:"required,max=128"`
	}

	// FactItem 사실 기록 항목
	FactItem struct {
		Key      string         `json:"key" validate:"required,max=255"`
		Value    string         `json:"value" validate:"required"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}

	// FactsRequest 사실 일괄 기록 요청 DTO
	FactsRequest struct {
		UserID   string     `json:"user_id" validate:"required,max=128"`
		Memories []FactItem `json:"memories" validate:"required,min=1,max=100,dive"`
	}

	// ReclassifyRequest 사실 재분류 요청 DTO
	ReclassifyRequest struct {
		UserID string `json:"user_id" validate:"required,max=128"`
	}

	// OverrideRequest 사실 분류 수동 지정 요청 DTO
	OverrideRequest struct {
		Importance string `json:"importance" validate:"required,oneof=high medium low HIGH MEDIUM LOW"`
		Category   string `json:"category" validate:"required,max=64"`
	}

	// MemorySearchRequest 기억 검색 요청 DTO. limit 이 0 이면 기본값.
	MemorySearchRequest struct {
		UserID string `json:"user_id" validate:"required,max=128"`
		Query  string `json:"query" validate:"required,max=200"`
		Limit  int    `json:"limit" validate:"omitempty,min=1"`
	}

	// ReindexRequest 토픽 인덱스 재구축 요청 DTO
	ReindexRequest struct {
		UserID string `json:"user_id" validate:"required,max=128"`
	}

	// ActivityRequest 활동 기록 요청 DTO
	ActivityRequest struct {
		UserID       string `json:"user_id" validate:"required,max=128"`
		ActivityType string `json:"activity_type" validate:"required"`
	}
)

// newValidator 에러 필드 이름을 json 태그 이름으로 보고하는 검증기
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate 바디를 읽고 검증한다. 형식 오류는 MalformedInputError 로 감싼다.
func decodeAndValidate(r *http.Request, v *validator.Validate, out any) error {
	if err := httputil.ReadJSON(r, out, maxBodyBytes); err != nil {
		if errors.Is(err, httputil.ErrEmptyBody) {
			return cerrors.MalformedInputError{Message: "request body is required"}
		}
		return cerrors.MalformedInputError{Message: "invalid request body"}
	}
	if err := v.Struct(out); err != nil {
		return err
	}
	return nil
}

// authorize 게이트웨이가 전달한 X-User-Id 가 대상 사용자와 같은지 확인한다.
func authorize(r *http.Request, userID string) error {
	principal := strings.TrimSpace(r.Header.Get(httputil.HeaderUserID))
	if principal == "" {
		return cerrors.AccessDeniedError{Reason: "missing principal"}
	}
	if principal != strings.TrimSpace(userID) {
		return cerrors.AccessDeniedError{Reason: "principal does not match user_id"}
	}
	return nil
}

// queryInt 쿼리 정수 파싱. 형식 오류는 MalformedInputError.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v, err := httputil.QueryInt(r, key, def)
	if err != nil {
		return 0, cerrors.MalformedInputError{Message: err.Error()}
	}
	return v, nil
}
