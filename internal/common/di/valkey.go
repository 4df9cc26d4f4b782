// Package di 는 wire 의존성 그래프에서 같은 기반 타입을 구분하기 위한 래퍼 타입을 둔다.
package di

import "github.com/valkey-io/valkey-go"

// DataValkeyClient 채팅 캐시와 레이트리밋이 쓰는 Valkey 연결
type DataValkeyClient struct{ valkey.Client }

// MQValkeyClient 요약 작업 스트림 전용 Valkey 연결. 로컬 디스패치에서는 비어 있다.
type MQValkeyClient struct{ valkey.Client }
