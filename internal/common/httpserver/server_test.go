package httpserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewServerDefaults(t *testing.T) {
	server := NewServer(":0", nil, ServerOptions{})
	if server.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("expected default read header timeout, got %v", server.ReadHeaderTimeout)
	}
	if server.IdleTimeout != 0 || server.MaxHeaderBytes != 0 {
		t.Errorf("expected zero tuning values, got idle=%v header=%d", server.IdleTimeout, server.MaxHeaderBytes)
	}
}

func TestNewServerWrapsHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := NewServer(":0", mux, ServerOptions{
		UseH2C:         true,
		TraceOperation: "bondhu",
		TraceFilter:    func(r *http.Request) bool { return r.URL.Path != "/health" },
	})

	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
}

func TestServeShutdownOnCancel(t *testing.T) {
	server := NewServer("127.0.0.1:0", http.NewServeMux(), ServerOptions{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, server, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeListenerServesUntilCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := NewServer("", mux, ServerOptions{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, server, ln, time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServeReportsBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	server := NewServer(ln.Addr().String(), http.NewServeMux(), ServerOptions{})
	if err := Serve(context.Background(), server, time.Second); err == nil {
		t.Fatal("expected bind error for occupied address")
	}
}
