package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
)

func createAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing user and reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL"); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db open: %w", err)
			}
			defer pkgdb.Close(db)

			svc := &service.AuthService{Repo: repo.NewGormRepo(db)}
			user, created, err := svc.CreateAdmin(ctx, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("created admin %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Printf("promoted %s (%s) to admin\n", user.Email, user.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
