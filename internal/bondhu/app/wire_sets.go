//go:build wireinject

package app

import "github.com/google/wire"

var bondhuProviderSet = wire.NewSet(
	newBondhuAssets,
	newBondhuRestClient,
	newBondhuDB,
	newBondhuRepository,
	newBondhuDataValkey,
	newBondhuMQValkey,
	newBondhuMetrics,
	newBondhuServices,
	newBondhuSummaryDispatch,
	newBondhuRateLimiter,
	newBondhuChatService,
	newBondhuHTTPMux,
	newBondhuHTTPServer,
	newBondhuServerApp,
)
