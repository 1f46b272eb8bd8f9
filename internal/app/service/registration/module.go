package registration

import (
	"go.uber.org/fx"

	"github.com/shuttlepoint/server/internal/app/service/ledger"
)

var Module = fx.Options(
	fx.Provide(func(l *ledger.Service) Ledger { return l }),
	fx.Provide(New),
)
