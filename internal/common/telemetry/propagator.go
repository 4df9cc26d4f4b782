package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectContext: context의 trace context를 carrier(스트림 메시지 필드 등)에 주입합니다.
func InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

// ExtractContext: carrier에서 부모 trace context를 복원한 새 context를 반환합니다.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// MapCarrier: Valkey 스트림 메시지의 Values(map[string]string)를 TextMapCarrier로 사용하는 어댑터
type MapCarrier map[string]string

// Get: 주어진 키의 값을 반환합니다.
func (c MapCarrier) Get(key string) string { return c[key] }

// Set: 주어진 키에 값을 설정합니다.
func (c MapCarrier) Set(key, value string) { c[key] = value }

// Keys: 모든 키를 반환합니다.
func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
