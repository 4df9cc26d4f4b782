package app

import (
	"context"
	"log/slog"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/bootstrap"
)

// Initialize 는 Bondhu 애플리케이션 의존성을 초기화하고 ServerApp을 반환한다.
func Initialize(ctx context.Context, cfg *bconfig.Config, logger *slog.Logger) (*bootstrap.ServerApp, func(), error) {
	bundle, err := newBondhuAssets()
	if err != nil {
		return nil, nil, err
	}

	restClient, err := newBondhuRestClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, cleanupDB, err := newBondhuDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	repo, err := newBondhuRepository(ctx, db, bundle, logger)
	if err != nil {
		cleanupDB()
		return nil, nil, err
	}

	dataValkeyClient, cleanupDataValkey, err := newBondhuDataValkey(ctx, cfg, logger)
	if err != nil {
		cleanupDB()
		return nil, nil, err
	}

	mqValkeyClient, cleanupMQValkey, err := newBondhuMQValkey(ctx, cfg, logger)
	if err != nil {
		cleanupDataValkey()
		cleanupDB()
		return nil, nil, err
	}

	recorder := newBondhuMetrics()
	services := newBondhuServices(cfg, repo, bundle, restClient, recorder, logger)
	dispatch, cleanupDispatch := newBondhuSummaryDispatch(cfg, mqValkeyClient, services, logger)
	limiter := newBondhuRateLimiter(ctx, cfg, dataValkeyClient, logger)
	chat := newBondhuChatService(cfg, repo, bundle, services, dispatch, dataValkeyClient, limiter, recorder, logger)

	httpMux := newBondhuHTTPMux(cfg, repo, dataValkeyClient, chat, services, recorder, logger)
	httpServer := newBondhuHTTPServer(cfg, httpMux)

	serverApp := newBondhuServerApp(logger, httpServer, services, dispatch)

	// 워커가 남은 요약을 끝낸 뒤 저장소를 닫는다.
	cleanup := func() {
		cleanupDispatch()
		cleanupMQValkey()
		cleanupDataValkey()
		cleanupDB()
	}

	return serverApp, cleanup, nil
}
