// Command seed creates the account used by automated auth flows from
// E2E_USERNAME and E2E_PASSWORD. An existing account is left as is.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tenxcards/tenxcards-backend/internal/app"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("warning: load .env: %v\n", err)
	}
	email := strings.TrimSpace(os.Getenv("E2E_USERNAME"))
	password := os.Getenv("E2E_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("E2E_USERNAME and E2E_PASSWORD must be set")
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	sess, err := application.Services.Auth.RegisterUser(ctx, email, password)
	switch {
	case err == nil:
		application.Log.Info("Seeded e2e user", "user_id", sess.UserID)
		if err := application.Services.Auth.LogoutUser(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
			application.Log.Warn("Dropping seed session failed", "error", err)
		}
	case apperrors.KindOf(err) == apperrors.KindConflict:
		application.Log.Info("E2E user already exists")
	default:
		fmt.Printf("seed user: %v\n", err)
		application.Close()
		os.Exit(1)
	}
}
