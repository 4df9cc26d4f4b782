package main

import (
	"context"
	"log/slog"
	"os"

	bapp "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/app"
	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/bootstrap"
	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/health"
)

// Version: 빌드 시 ldflags로 주입됨 (예: -ldflags="-X main.Version=1.0.0")
var Version = "dev"

func main() {
	health.Init(Version)

	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	finalLogger, err := bootstrap.RunEntrypoint(context.Background(), logger, bootstrap.Entrypoint[bconfig.Config]{
		LogFileName:     "bondhu.log",
		LoadConfig:      bconfig.LoadFromEnv,
		LogConfig:       func(cfg *bconfig.Config) commonconfig.LogConfig { return cfg.Log },
		TelemetryConfig: func(cfg *bconfig.Config) commonconfig.TelemetryConfig { return cfg.Telemetry },
		Initialize:      bapp.Initialize,
	})
	if err != nil {
		logger = finalLogger
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
