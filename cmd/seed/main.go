// seed creates the initial administrator account if it does not exist.
// Credentials come from SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	adminrepo "github.com/DragaoTI/auth-service/internal/admin/repository"
	adminsvc "github.com/DragaoTI/auth-service/internal/admin/service"
	"github.com/DragaoTI/auth-service/internal/config"
	"github.com/DragaoTI/auth-service/internal/db"
	"github.com/DragaoTI/auth-service/internal/security"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return errors.New("SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD must be set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := adminsvc.NewAdminService(adminrepo.NewPostgresRepository(database), security.NewHasher(cfg.BcryptCost), nil)
	admin, err := svc.Create(ctx, username, password, "")
	if err != nil {
		if errors.Is(err, adminsvc.ErrUsernameTaken) {
			fmt.Printf("administrator %q already exists, nothing to do\n", username)
			return nil
		}
		return err
	}
	fmt.Printf("created administrator %q (%s)\n", admin.Username, admin.ID)
	return nil
}
