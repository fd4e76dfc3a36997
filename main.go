package main

import (
	"log/slog"
	"os"

	"lutconv/convert"
	"lutconv/parallel"
	"lutconv/restore"

	"github.com/alecthomas/kong"
)

var cli struct {
	Verbose bool           `help:"Enable debug logging" default:"false"`
	Workers int            `help:"Workers scanning each image, 0 uses every CPU" default:"1"`
	Convert convert.CLICmd `cmd:"" default:"withargs" help:"Encode PNG images against a shared color lookup table"`
	Restore restore.CLICmd `cmd:"" help:"Rebuild the colors of an encoded image from its lookup table"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("lutconv"),
		kong.Description("Replace the colors of PNG images with coordinates into a shared lookup table."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pool := parallel.Start(cli.Workers)
	slog.Debug("running", "command", kctx.Command(), "workers", pool.Size)

	err := kctx.Run(pool)
	pool.Wait(true)
	kctx.FatalIfErrorf(err)
}
