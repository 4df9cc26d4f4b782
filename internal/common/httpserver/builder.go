package httpserver

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServerOptions: HTTP 서버 생성 옵션
type ServerOptions struct {
	UseH2C            bool
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// TraceOperation: 비어있지 않으면 otelhttp로 핸들러를 감싸 서버 스팬을 생성한다.
	TraceOperation string
	// TraceFilter: true를 반환한 요청만 추적한다. (헬스체크/메트릭 제외 용도)
	TraceFilter func(*http.Request) bool
}

// NewServer: 핸들러에 추적/H2C 래핑을 적용한 http.Server를 생성한다.
func NewServer(addr string, handler http.Handler, opts ServerOptions) *http.Server {
	if handler == nil {
		handler = http.NewServeMux()
	}

	if opts.TraceOperation != "" {
		otelOpts := []otelhttp.Option{
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		}
		if opts.TraceFilter != nil {
			otelOpts = append(otelOpts, otelhttp.WithFilter(opts.TraceFilter))
		}
		handler = otelhttp.NewHandler(handler, opts.TraceOperation, otelOpts...)
	}
	if opts.UseH2C {
		// 게이트웨이가 TLS 없이 HTTP/2 로 붙는다.
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: opts.IdleTimeout})
	}

	readHeaderTimeout := opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 5 * time.Second
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if opts.IdleTimeout > 0 {
		server.IdleTimeout = opts.IdleTimeout
	}
	if opts.MaxHeaderBytes > 0 {
		server.MaxHeaderBytes = opts.MaxHeaderBytes
	}

	return server
}
