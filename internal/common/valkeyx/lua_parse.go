package valkeyx

import (
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// ParseLuaInt64Pair: Lua 결과를 [int64, int64]로 파싱합니다.
func ParseLuaInt64Pair(resp valkey.ValkeyResult) (int64, int64, error) {
	values, err := resp.ToArray()
	if err != nil {
		return 0, 0, fmt.Errorf("parse lua array failed: %w", err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected lua array len: %d", len(values))
	}
	first, err := values[0].AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("parse lua int64 failed: %w", err)
	}
	second, err := values[1].AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("parse lua int64 failed: %w", err)
	}
	return first, second, nil
}

// ParseLuaInt64: Lua 결과를 int64로 파싱합니다.
func ParseLuaInt64(resp valkey.ValkeyResult) (int64, error) {
	value, err := resp.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse lua int64 failed: %w", err)
	}
	return value, nil
}
