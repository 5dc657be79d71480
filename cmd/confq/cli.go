package main

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/builder"
	log "github.com/sirupsen/logrus"
)

// CLI is the command-line interface of confq.
type CLI struct {
	LogLevel string   `default:"warn" enum:"trace,debug,info,warn,error" help:"Log level." name:"log-level"`
	Dirs     []string `help:"Search directories for relative paths. GOCONF_PATH is used if not set." name:"dir" short:"d"`

	Get     Get     `cmd:"" help:"Print values of a key."`
	Keys    Keys    `cmd:"" help:"Print keys of a configuration."`
	Convert Convert `cmd:"" help:"Convert a configuration file to another format."`
}

// Run parses the arguments and executes the selected command. Output of
// commands is written to out.
func Run(ctx context.Context, exit func(code int), out io.Writer,
	args ...string) error {

	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("confq"),
		kong.Description("Query and convert configuration files."),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.Writers(out, out),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
	)

	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)

	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cli.LogLevel)

	if err != nil {
		return err
	}

	log.SetLevel(level)

	return ktx.Run(&cli)
}

func (c *CLI) load(path string) (*conf.HierarchicalConfig, error) {
	params := builder.NewParams(builder.WithPath(path))

	if len(c.Dirs) > 0 {
		params.SearchDirs = c.Dirs
	}

	config, err := builder.NewFileBuilder(params).Configuration()

	if err != nil {
		return nil, err
	}

	hc, ok := config.(*conf.HierarchicalConfig)

	if !ok {
		return nil, fmt.Errorf("unexpected configuration type %T", config)
	}

	return hc, nil
}
