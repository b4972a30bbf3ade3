package player

import (
	"context"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// Factory builds HTTPPlayers sharing one fetcher. Close cancels every
// download started by its players.
type Factory struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewFactory creates a player factory
func NewFactory(logger *zap.Logger, fetcher domain.Fetcher) *Factory {
	ctx, cancel := context.WithCancel(context.Background())
	return &Factory{
		logger:  logger,
		fetcher: fetcher,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// NewPlayer satisfies domain.PlayerFactory
func (f *Factory) NewPlayer() domain.Player {
	return NewHTTPPlayer(f.ctx, f.logger, f.fetcher, DefaultOptions)
}

// Close cancels in-flight downloads
func (f *Factory) Close() {
	f.cancel()
}
