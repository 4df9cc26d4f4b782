//go:build wireinject

package app

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/bootstrap"
)

//go:generate go run github.com/google/wire/cmd/wire@v0.7.0
func Initialize(
	ctx context.Context,
	cfg *bconfig.Config,
	logger *slog.Logger,
) (*bootstrap.ServerApp, func(), error) {
	wire.Build(
		bondhuProviderSet,
	)
	return nil, nil, nil
}
