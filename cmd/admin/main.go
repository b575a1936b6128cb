package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/threadloom/storefront-backend/internal/auth"
	"github.com/threadloom/storefront-backend/internal/bootstrap"
	"github.com/threadloom/storefront-backend/internal/maintenance"
	"github.com/threadloom/storefront-backend/internal/users"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/redis"
)

func main() {
	ctx := context.Background()

	cmd := flag.String("cmd", "", "admin command: create-admin|promote|demote|activate|deactivate|maintenance")
	email := flag.String("email", "", "account email")
	name := flag.String("name", "", "display name (for create-admin)")
	password := flag.String("password", "", "password (for create-admin)")
	state := flag.String("state", "status", "maintenance state: on|off|status")
	flag.Parse()

	cfg, logg, err := bootstrap.LoadConfig("admin")
	requireResource(ctx, logg, "config", err)
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	switch *cmd {
	case "maintenance":
		if err := runMaintenance(ctx, cfg, logg, *state); err != nil {
			fmt.Fprintf(os.Stderr, "maintenance failed: %v\n", err)
			os.Exit(1)
		}
		return
	case "create-admin", "promote", "demote", "activate", "deactivate":
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "missing -email")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	userRepo := users.NewRepository(dbClient.DB())

	switch *cmd {
	case "create-admin":
		authService, err := auth.NewService(auth.ServiceParams{
			UserRepo:       userRepo,
			JWTConfig:      cfg.JWT,
			PasswordConfig: cfg.Password,
			Logger:         logg,
		})
		requireResource(ctx, logg, "auth service", err)
		user, err := authService.CreateAccount(ctx, auth.AccountInput{
			Email:    *email,
			Name:     *name,
			Password: *password,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create account failed: %v\n", err)
			os.Exit(1)
		}
		if err := userRepo.SetAdmin(ctx, user.ID, true); err != nil {
			fmt.Fprintf(os.Stderr, "grant admin failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created admin:", user.ID)

	case "promote", "demote", "activate", "deactivate":
		user, err := userRepo.FindByEmail(ctx, *email)
		if db.IsNotFound(err) {
			fmt.Fprintln(os.Stderr, "no account for", *email)
			os.Exit(1)
		}
		requireResource(ctx, logg, "user lookup", err)
		ctx = logg.WithField(ctx, "user_id", user.ID.String())

		switch *cmd {
		case "promote", "demote":
			admin := *cmd == "promote"
			if err := userRepo.SetAdmin(ctx, user.ID, admin); err != nil {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
				os.Exit(1)
			}
			logg.Warn(ctx, "admin role changed")
			fmt.Printf("%s: %s admin=%t\n", *cmd, user.Email, admin)
		default:
			active := *cmd == "activate"
			if err := userRepo.SetActive(ctx, user.ID, active); err != nil {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
				os.Exit(1)
			}
			logg.Warn(ctx, "account login state changed")
			fmt.Printf("%s: %s active=%t\n", *cmd, user.Email, active)
		}
	}
}

func runMaintenance(ctx context.Context, cfg *config.Config, logg *logger.Logger, state string) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer redisClient.Close()

	store, err := maintenance.NewRedisStore(redisClient)
	if err != nil {
		return err
	}
	service, err := maintenance.NewService(store, cfg.Maintenance.CacheTTL, logg)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(state)) {
	case "on":
		if err := service.Set(ctx, true); err != nil {
			return err
		}
	case "off":
		if err := service.Set(ctx, false); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown state %q", state)
	}
	fmt.Println("maintenance:", service.Get(ctx))
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
