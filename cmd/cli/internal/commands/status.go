package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

type StatusCmd struct {
	ClientFlags
	Wait        bool          `help:"Wait for the API to become reachable"`
	WaitTimeout time.Duration `help:"Give up waiting after this long" default:"60s"`
}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := newSessionManager(&s.ClientFlags)
	if err != nil {
		return err
	}

	client := newAPIClient(&s.ClientFlags, globals, sessions)

	if s.Wait {
		_, err = backoff.Retry(ctx, func() (struct{}, error) {
			if err := client.Health(ctx); err != nil {
				log.Debug().Err(err).Msg("API not reachable yet")
				return struct{}{}, err
			}
			return struct{}{}, nil
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxElapsedTime(s.WaitTimeout))
	} else {
		err = client.Health(ctx)
	}

	if err != nil {
		fmt.Printf("API:     unreachable (%s)\n", s.Server)
	} else {
		fmt.Printf("API:     ok (%s)\n", s.Server)
	}

	if err := sessions.Initialize(); err != nil {
		return err
	}

	if sessions.IsAuthenticated() {
		fmt.Println("Session: authenticated")
		if user := sessions.User(); user != nil {
			fmt.Printf("User:    %s (%s)\n", user.Name, user.Email)
		}
		fmt.Printf("Expires: %s\n", sessions.ExpiresAt().Format(time.RFC3339))
	} else {
		fmt.Println("Session: not logged in")
	}

	return nil
}
