package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hostelsec/cmd/cli/internal/commands"
	"github.com/wolfeidau/hostelsec/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in and store a session profile"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the current user"`
		Profiles commands.ProfilesCmd `cmd:"" help:"Manage stored profiles"`
		List     commands.ListCmd     `cmd:"" help:"List events"`
		Dispose  commands.DisposeCmd  `cmd:"" help:"Ignore or deal with an event"`
		Monitor  commands.MonitorCmd  `cmd:"" help:"Stream live events"`
		Agent    commands.AgentCmd    `cmd:"" help:"Act as an edge agent"`
		Debug    bool                 `help:"Enable debug mode." env:"HOSTELSEC_DEBUG"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("hostelsec-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
