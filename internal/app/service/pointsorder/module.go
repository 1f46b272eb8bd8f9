package pointsorder

import (
	"context"

	"go.uber.org/fx"

	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/tool"
)

func newOrderNoGenerator(cfg *config.Config) (OrderNoGenerator, error) {
	return tool.NewOrderNoGenerator(cfg.OrderNo.NodeID)
}

func registerSeed(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.SeedPlans(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(func(c *newebpay.Client) Gateway { return c }),
	fx.Provide(func(l *ledger.Service) Ledger { return l }),
	fx.Provide(newOrderNoGenerator),
	fx.Provide(New),
	fx.Invoke(registerSeed),
)
