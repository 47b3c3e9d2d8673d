package main

import (
	"github.com/alecthomas/kong"
)

// CLI ...
type CLI struct {
	Compress CompressCmd `cmd:"" help:"Upload a file and compress it with the compression service"`
	Serve    ServeCmd    `cmd:"" help:"Run a local compression service"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("compressor"),
		kong.Description("Client for the file compression service."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
