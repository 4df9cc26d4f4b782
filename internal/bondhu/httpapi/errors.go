package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	cerrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httputil"
)

// ErrorCode API 오류 코드
type ErrorCode string

const (
	// ErrorCodeValidation 입력 검증 실패
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeInvalidInput 요청 바디/쿼리 형식 오류
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeForbidden 다른 사용자 자원 접근
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeNotFound 대상 없음
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeHTTPRateLimit 사용자별 요청 한도 초과
	ErrorCodeHTTPRateLimit ErrorCode = "HTTP_RATE_LIMIT"
	// ErrorCodeInternal 내부 오류
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// apiError HTTP 응답으로 변환된 오류
type apiError struct {
	Status     int
	Code       ErrorCode
	Message    string
	RetryAfter int // 초, 0 이면 헤더 생략
}

// fromError 서비스 에러를 상태 코드로 변환한다.
func fromError(err error) apiError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return apiError{Status: http.StatusBadRequest, Code: ErrorCodeValidation, Message: validationMessage(validationErrors)}
	}

	var invalid berrors.InvalidArgumentError
	if errors.As(err, &invalid) {
		return apiError{Status: http.StatusBadRequest, Code: ErrorCodeValidation, Message: invalid.Error()}
	}

	var malformed cerrors.MalformedInputError
	if errors.As(err, &malformed) {
		return apiError{Status: http.StatusBadRequest, Code: ErrorCodeInvalidInput, Message: malformed.Message}
	}

	var limited cerrors.RateLimitedError
	if errors.As(err, &limited) {
		retry := max(int(limited.RetryAfter.Seconds()), 1)
		return apiError{Status: http.StatusTooManyRequests, Code: ErrorCodeHTTPRateLimit, Message: "Rate limit exceeded", RetryAfter: retry}
	}

	var denied cerrors.AccessDeniedError
	if errors.As(err, &denied) {
		return apiError{Status: http.StatusForbidden, Code: ErrorCodeForbidden, Message: denied.Error()}
	}

	var notFound berrors.NotFoundError
	if errors.As(err, &notFound) {
		return apiError{Status: http.StatusNotFound, Code: ErrorCodeNotFound, Message: notFound.Error()}
	}

	return apiError{Status: http.StatusInternalServerError, Code: ErrorCodeInternal, Message: "Internal server error"}
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+" failed "+fe.Tag()+"="+fe.Param())
			continue
		}
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return "Input validation failed: " + strings.Join(parts, ", ")
}

// respondError 에러를 매핑해 응답한다. 4xx 는 Warn, 5xx 는 Error 로 남긴다.
func respondError(w http.ResponseWriter, logger *slog.Logger, event string, err error, attrs ...any) {
	mapped := fromError(err)
	attrs = append(attrs, "status", mapped.Status, "err", err)
	if mapped.Status >= http.StatusInternalServerError {
		logger.Error(event, attrs...)
	} else {
		logger.Warn(event, attrs...)
	}

	if mapped.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(mapped.RetryAfter))
	}
	_ = httputil.WriteErrorJSON(w, mapped.Status, string(mapped.Code), mapped.Message)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	_ = httputil.WriteJSON(w, status, data)
}
