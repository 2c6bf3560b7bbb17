package domain

import "context"

// ChannelTransport is the realtime side of the exchange: it sends subscribe
// and unsubscribe control messages. Inbound events are pushed by the
// transport to whatever handler it was built with.
type ChannelTransport interface {
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe(ctx context.Context, channel string) error
}

// MarketDataSource is the one-shot REST side used to seed and poll the stores.
type MarketDataSource interface {
	GetBoard(ctx context.Context, productCode string) (*BoardPayload, error)
	GetExecutions(ctx context.Context, productCode string, count int) ([]ExecutionPayload, error)
	GetTicker(ctx context.Context, productCode string) (*TickerPayload, error)
	GetBoardState(ctx context.Context, productCode string) (*HealthPayload, error)
}
