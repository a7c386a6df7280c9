package commands

import (
	"context"
	"fmt"
)

type LogoutCmd struct {
	ClientFlags
}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	sessions, err := newSessionManager(&l.ClientFlags)
	if err != nil {
		return err
	}

	sessions.Logout()
	fmt.Println("Logged out")

	return nil
}
