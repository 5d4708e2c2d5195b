package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/relpack/cmd/relpack/commands"
	"git.home.luguber.info/inful/relpack/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("relpack"),
		kong.Description("Cross-platform release packaging: compile, stage, sign, archive, checksum."),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("relpack %s (commit %s, built %s)",
				version.Version, version.GitCommit, version.BuildTime),
		},
	)
	ctx.FatalIfErrorf(ctx.Run(&commands.Global{}, &cli))
}
