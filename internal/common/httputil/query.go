package httputil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// QueryInt: 쿼리 파라미터를 정수로 읽는다. 값이 없으면 defaultValue를 반환한다.
func QueryInt(r *http.Request, key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid query %s=%q: %w", key, raw, err)
	}
	return value, nil
}

// QueryString: 쿼리 파라미터를 공백 제거 후 반환한다.
func QueryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
