package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httpserver"
)

// BackgroundTask: 서버 수명 동안 함께 실행되는 작업 (스트림 컨슈머, 워커 등)
type BackgroundTask struct {
	Name        string
	ErrorLogKey string
	Run         func(ctx context.Context) error
}

// RunHTTPServer: HTTP 서버와 백그라운드 작업을 errgroup으로 묶어 실행합니다.
// SIGINT/SIGTERM 또는 어느 하나의 실패 시 전체가 종료됩니다.
func RunHTTPServer(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	server *http.Server,
	shutdownTimeout time.Duration,
	backgroundTasks ...BackgroundTask,
) error {
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)

	for _, task := range backgroundTasks {
		if task.Run == nil {
			continue
		}
		g.Go(func() error {
			if err := task.Run(gctx); err != nil {
				logKey := task.ErrorLogKey
				if logKey == "" {
					logKey = "background_task_failed"
				}
				logger.Error(logKey, "task", task.Name, "err", err)
				return fmt.Errorf("%s failed: %w", task.Name, err)
			}
			return nil
		})
	}

	logger.Info("server_start", "service", name, "addr", server.Addr, "background_tasks", len(backgroundTasks))
	g.Go(func() error {
		if err := httpserver.Serve(gctx, server, shutdownTimeout); err != nil {
			return fmt.Errorf("http server serve failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run http server failed: %w", err)
	}
	logger.Info("server_stopped", "service", name)
	return nil
}
