// Command phishctl is the operator CLI: migrations, initial admin seeding,
// demo fixtures, and token issuance for local development.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"phishdeck/internal/app"
	"phishdeck/internal/authz"
	"phishdeck/internal/config"
	internaldb "phishdeck/internal/db"
	"phishdeck/internal/rls"
	"phishdeck/internal/service"
	"phishdeck/internal/session"
)

var cfg *config.Config

func main() {
	root := &cobra.Command{
		Use:          "phishctl",
		Short:        "Operator CLI for the awareness-training platform",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			var err error
			cfg, err = config.LoadFromEnv()
			if err != nil {
				return err
			}
			if db := mustString(cmd.Flags(), "db"); db != "" {
				cfg.DBPath = db
			}
			return nil
		},
	}
	root.PersistentFlags().String("db", "", "path to the SQLite database (overrides DB_PATH)")

	root.AddCommand(migrateCmd(), verifyCmd(), seedAdminCmd(), seedDemoCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// mustString reads a registered string flag; the name is always one this
// binary registered itself.
func mustString(fs *pflag.FlagSet, name string) string {
	v, err := fs.GetString(name)
	if err != nil {
		panic(err)
	}
	return v
}

// withGuard opens the database, runs migrations, and hands fn a wired
// session guard. Every mutating subcommand goes through here.
func withGuard(ctx context.Context, fn func(ctx context.Context, g *session.Guard) error) error {
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 2)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	reg := authz.PlatformRegistry()
	if err := rls.Verify(ctx, readDB, reg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return fn(ctx, session.NewGuard(writeDB, readDB, reg, logger))
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, err := internaldb.OpenSQLite(cfg.DBPath, "write", 0)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			if err := internaldb.RunMigrations(writeDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every database table is governed by the entity registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			readDB, err := internaldb.OpenSQLite(cfg.DBPath, "read", 1)
			if err != nil {
				return err
			}
			defer readDB.Close() //nolint:errcheck
			if err := rls.Verify(cmd.Context(), readDB, authz.PlatformRegistry()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all tables governed")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial platform admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email := mustString(cmd.Flags(), "email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			return withGuard(cmd.Context(), func(ctx context.Context, g *session.Guard) error {
				if err := app.SeedAdmin(ctx, g, email, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready\n", email)
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "admin email address")
	return cmd
}

func seedDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Load demo tenants, users, courses, and campaigns from a YAML fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, err := app.LoadFixture(mustString(cmd.Flags(), "fixture"))
			if err != nil {
				return err
			}
			return withGuard(cmd.Context(), func(ctx context.Context, g *session.Guard) error {
				if err := app.SeedDemo(ctx, g, fx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tenant(s)\n", len(fx.Tenants))
				return nil
			})
		},
	}
	cmd.Flags().String("fixture", "fixtures/demo.yaml", "path to the demo fixture")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Log in with email and password and print an access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email := mustString(cmd.Flags(), "email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			return withGuard(cmd.Context(), func(ctx context.Context, g *session.Guard) error {
				auth := service.NewAuthService(g, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
				token, _, err := auth.Login(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "account email address")
	return cmd
}

// promptPassword reads a password without echo when stdin is a terminal,
// and falls back to a plain line read when it is piped.
func promptPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
