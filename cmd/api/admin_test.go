package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func appWithStopErr(stopErr error, stopped *bool) *fx.App {
	return fx.New(fx.NopLogger, fx.Invoke(func(lc fx.Lifecycle) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			*stopped = true
			return stopErr
		}})
	}))
}

func TestWithApp_ReturnsStopError(t *testing.T) {
	var stopped bool
	boom := errors.New("pool close failed")
	a := appWithStopErr(boom, &stopped)
	require.NoError(t, a.Err())

	err := withApp(context.Background(), a, func() error { return nil })
	require.ErrorIs(t, err, boom)
	require.True(t, stopped)
}

func TestWithApp_RunErrorWinsAndStillStops(t *testing.T) {
	var stopped bool
	drift := errors.New("2 member balances drifted from the ledger")
	a := appWithStopErr(errors.New("pool close failed"), &stopped)

	err := withApp(context.Background(), a, func() error { return drift })
	require.ErrorIs(t, err, drift)
	require.True(t, stopped)
}

func TestWithApp_CleanRun(t *testing.T) {
	var stopped bool
	a := appWithStopErr(nil, &stopped)

	require.NoError(t, withApp(context.Background(), a, func() error { return nil }))
	require.True(t, stopped)
}
