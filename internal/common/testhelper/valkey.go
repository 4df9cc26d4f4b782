package testhelper

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

// NewMiniredis: 테스트 종료 시 자동으로 닫히는 miniredis 서버를 시작합니다.
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

// NewValkeyClientFor: 주어진 miniredis 서버에 연결하는 valkey 클라이언트를 생성합니다.
// miniredis는 클라이언트 사이드 캐싱과 클러스터를 지원하지 않으므로 둘 다 비활성화합니다.
func NewValkeyClientFor(t *testing.T, mr *miniredis.Miniredis) valkey.Client {
	t.Helper()

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		t.Fatalf("valkey client create failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// NewMiniredisClient: miniredis 서버와 연결된 클라이언트를 한 번에 생성합니다.
func NewMiniredisClient(t *testing.T) valkey.Client {
	t.Helper()
	return NewValkeyClientFor(t, NewMiniredis(t))
}
