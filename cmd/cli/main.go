package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/mrushidany/scoop-pos-admin-sub001/cmd/cli/internal/commands"
	"github.com/mrushidany/scoop-pos-admin-sub001/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login     commands.LoginCmd     `cmd:"" help:"Log in to the back-office API"`
		Logout    commands.LogoutCmd    `cmd:"" help:"Log out and clear the local session"`
		Status    commands.StatusCmd    `cmd:"" help:"Show session and API status"`
		Whoami    commands.WhoamiCmd    `cmd:"" help:"Show the logged-in user"`
		Overview  commands.OverviewCmd  `cmd:"" help:"Show dashboard counters"`
		Users     commands.UsersCmd     `cmd:"" help:"List back-office users"`
		Stores    commands.StoresCmd    `cmd:"" help:"List stores"`
		Devices   commands.DevicesCmd   `cmd:"" help:"List terminals"`
		Operators commands.OperatorsCmd `cmd:"" help:"List telecom operators"`
		Prices    commands.PricesCmd    `cmd:"" help:"List license pricing tiers"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
