package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/hostelsec/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug     bool                  `help:"Enable debug mode." env:"HOSTELSEC_DEBUG"`
		Version   kong.VersionFlag      `help:"Print version and exit."`
		Serve     commands.ServeCmd     `cmd:"" help:"Start the API server"`
		Migrate   commands.MigrateCmd   `cmd:"" help:"Run database migrations"`
		SeedAdmin commands.SeedAdminCmd `cmd:"" name:"seed-admin" help:"Create the first organization and admin user"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("hostelsec"),
		kong.Description("Multi-tenant physical access monitoring API."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
