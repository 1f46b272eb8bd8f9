package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/shuttlepoint/server/internal/app"
	"github.com/shuttlepoint/server/internal/app/service/ledger"
	"github.com/shuttlepoint/server/internal/platform/db"
	"github.com/shuttlepoint/server/pkg/auth"
	"github.com/shuttlepoint/server/pkg/config"
	"github.com/shuttlepoint/server/pkg/metrics"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := fx.New(app.InfraModule, db.MigrateModule, fx.NopLogger)
			if err := a.Err(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return withApp(cmd.Context(), a, func() error {
				fmt.Println("schema is up to date")
				return nil
			})
		},
	}
}

// withApp runs fn and then cycles the app so OnStop hooks release the DB
// pool. fn's error wins over a close error.
func withApp(ctx context.Context, a *fx.App, fn func() error) error {
	ferr := fn()
	cerr := closeApp(ctx, a)
	if ferr != nil {
		return ferr
	}
	if cerr != nil {
		return fmt.Errorf("close: %w", cerr)
	}
	return nil
}

// closeApp runs the lifecycle once so OnStop hooks release the DB pool.
func closeApp(ctx context.Context, a *fx.App) error {
	ctx, cancel := context.WithTimeout(ctx, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Stop(ctx)
}

func auditCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report members whose balance differs from their ledger sum",
		Long: `Compare members.points with the sum of each member's points records.

Exits non-zero when at least one member drifted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *ledger.Service
			a := fx.New(app.InfraModule, metrics.Module, ledger.Module, fx.Populate(&svc), fx.NopLogger)
			if err := a.Err(); err != nil {
				return err
			}
			return withApp(cmd.Context(), a, func() error {
				ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
				defer cancel()
				mismatches, err := svc.Audit(ctx)
				if err != nil {
					return fmt.Errorf("audit: %w", err)
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					if err := enc.Encode(mismatches); err != nil {
						return err
					}
				} else if len(mismatches) == 0 {
					fmt.Println("ledger consistent")
				} else {
					fmt.Printf("%-40s %12s %12s\n", "MEMBER", "STORED", "LEDGER")
					for _, m := range mismatches {
						fmt.Printf("%-40s %12d %12d\n", m.MemberID, m.Stored, m.LedgerSum)
					}
				}
				if len(mismatches) > 0 {
					return fmt.Errorf("%d member balances drifted from the ledger", len(mismatches))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		memberID string
		email    string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a member access token with auth.jwt_secret (local testing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}
			tok, err := auth.NewToken(cfg.Auth.JWTSecret, memberID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&memberID, "member", "", "member id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "member email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}
