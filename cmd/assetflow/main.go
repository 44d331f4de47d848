package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetflow/cmd/assetflow/commands"
	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
	"git.home.luguber.info/inful/assetflow/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("assetflow"),
		kong.Description("Build, serve and publish static front-end assets."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	global := &commands.Global{Ctx: ctx, Out: os.Stdout}
	err := parser.Run(global, cli)

	adapter := foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	code := adapter.Report(err)
	cancel()
	os.Exit(code)
}
