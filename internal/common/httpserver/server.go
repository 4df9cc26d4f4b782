package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Serve 는 주소를 먼저 바인딩한 뒤 서버를 실행하고, ctx 가 끝나면 shutdownTimeout 안에서 정상 종료한다.
// 바인딩 실패는 고루틴을 띄우기 전에 바로 반환된다.
func Serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("http server listen failed: %w", err)
	}
	return ServeListener(ctx, server, ln, shutdownTimeout)
}

// ServeListener 이미 열린 리스너로 서버를 실행한다.
func ServeListener(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()

	select {
	case err := <-serveErr:
		return normalizeServeErr(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return normalizeServeErr(<-serveErr)
}

func normalizeServeErr(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server stopped with error: %w", err)
}
