package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/shuttlepoint/server/internal/app/api/server"
	"github.com/shuttlepoint/server/internal/app/service/events"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	notificationlog "github.com/shuttlepoint/server/internal/app/service/notification_log"
	"github.com/shuttlepoint/server/internal/app/service/pointsorder"
	"github.com/shuttlepoint/server/internal/app/service/reconciler"
	"github.com/shuttlepoint/server/internal/app/service/registration"
	"github.com/shuttlepoint/server/internal/platform/db"
	"github.com/shuttlepoint/server/internal/platform/newebpay"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/logger"
	"github.com/shuttlepoint/server/pkg/metrics"
	"github.com/shuttlepoint/server/pkg/mq"
	"github.com/shuttlepoint/server/pkg/tracing"
)

const (
	DefaultStartTimeout = 15 * time.Second
	// DefaultStopTimeout covers in-flight return reconciliations, which can
	// poll for up to reconciler.interval * reconciler.max_attempts.
	DefaultStopTimeout = 40 * time.Second
)

// InfraModule is config, logging and the database pool.
var InfraModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
)

// ServiceModule is every domain service without the HTTP surface.
var ServiceModule = fx.Options(
	metrics.Module,
	tracing.Module,
	mq.Module,
	events.Module,
	notificationlog.Module,
	ledger.Module,
	registration.Module,
	newebpay.Module,
	pointsorder.Module,
	reconciler.Module,
)

var Module = fx.Options(
	InfraModule,
	ServiceModule,
	server.Module,
)
