package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type WhoamiCmd struct {
	ClientFlags
}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := newSessionManager(&w.ClientFlags)
	if err != nil {
		return err
	}

	if err := requireSession(sessions); err != nil {
		return err
	}

	user := sessions.User()
	if user == nil {
		fmt.Println("Logged in (no user metadata cached)")
		return nil
	}

	fmt.Printf("ID:     %s\n", user.ID)
	fmt.Printf("Name:   %s\n", user.Name)
	fmt.Printf("Email:  %s\n", user.Email)
	fmt.Printf("Admin:  %t\n", user.Admin)
	fmt.Printf("Active: %t\n", user.Active)

	// Token claims are informational only; the backend verifies them.
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sessions.Token(), &claims); err == nil {
		if claims.Subject != "" {
			fmt.Printf("Subject: %s\n", claims.Subject)
		}
		if claims.ExpiresAt != nil {
			fmt.Printf("Token expires: %s\n", claims.ExpiresAt.Format(time.RFC3339))
		}
	}

	return nil
}
