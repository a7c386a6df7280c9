package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrushidany/scoop-pos-admin-sub001/internal/session"
)

type LoginCmd struct {
	ClientFlags
	Email    string `help:"Account email" required:""`
	Password string `help:"Account password" env:"SCOOP_PASSWORD" required:""`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := newSessionManager(&l.ClientFlags)
	if err != nil {
		return err
	}

	if err := sessions.Login(ctx, l.Email, l.Password); err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			return fmt.Errorf("login rejected: %w", err)
		}
		return err
	}

	user := sessions.User()
	if user != nil {
		fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Email)
	} else {
		fmt.Println("Logged in")
	}

	return nil
}
