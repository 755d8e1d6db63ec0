package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediconnect/mediconnect/internal/config"
	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
	"github.com/mediconnect/mediconnect/internal/platform/validate"
	"github.com/mediconnect/mediconnect/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediconnect",
		Short: "MediConnect clinical scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed bootstrap data",
	}

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := adminRequestFromFlags(cmd)
			if err != nil {
				return err
			}

			ctx := context.Background()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			doctors := identity.NewDoctorRepoPG(pool)
			patients := identity.NewPatientRepoPG(pool)
			svc := identity.NewAuthService(identity.NewUserRepoPG(pool), identity.NewSpecialtyRepoPG(pool),
				doctors, patients, db.NewPoolTx(pool), access.NewGuard(nil),
				auth.NewPasswordHasher(cfg.BcryptCost), auth.NewHeaderAuthenticator())

			sum, err := svc.SeedAdmin(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %s (id %d).\n", sum.Email, sum.ID)
			return nil
		},
	}
	adminCmd.Flags().String("email", "", "Administrator email (required)")
	adminCmd.Flags().String("password", "", "Administrator password, at least 8 characters (required)")
	adminCmd.Flags().String("first-name", "System", "First name")
	adminCmd.Flags().String("last-name", "Admin", "Last name")

	cmd.AddCommand(adminCmd)
	return cmd
}

// adminRequestFromFlags builds and validates the seed request before any
// database work starts.
func adminRequestFromFlags(cmd *cobra.Command) (identity.RegisterRequest, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")

	req := identity.RegisterRequest{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  password,
	}
	if err := validate.New().Validate(&req); err != nil {
		return req, fmt.Errorf("invalid admin account: %w", err)
	}
	return req, nil
}
