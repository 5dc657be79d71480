package main

import (
	"fmt"
	"io"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/fileconf"
	"github.com/spf13/cast"
)

// Get prints values of a key, one per line.
type Get struct {
	File string `arg:"" help:"Configuration file."`
	Key  string `arg:"" help:"Configuration key."`
	Raw  bool   `help:"Print values without interpolation."`
}

// Run executes the get command.
func (g *Get) Run(cli *CLI, out io.Writer) error {
	config, err := cli.load(g.File)

	if err != nil {
		return err
	}

	var value any

	if g.Raw {
		value = config.GetRaw(g.Key)

		if value == nil {
			return fmt.Errorf("%w: %s", conf.ErrNoSuchKey, g.Key)
		}
	} else {
		value, err = config.Value(g.Key)

		if err != nil {
			return err
		}
	}

	values, ok := value.([]any)

	if !ok {
		values = []any{value}
	}

	for _, v := range values {
		if _, err := fmt.Fprintln(out, cast.ToString(v)); err != nil {
			return err
		}
	}

	return nil
}

// Keys prints keys of a configuration, optionally only keys with a prefix.
type Keys struct {
	File   string `arg:"" help:"Configuration file."`
	Prefix string `arg:"" optional:"" help:"Key prefix."`
}

// Run executes the keys command.
func (k *Keys) Run(cli *CLI, out io.Writer) error {
	config, err := cli.load(k.File)

	if err != nil {
		return err
	}

	keys := config.Keys()

	if k.Prefix != "" {
		keys = config.KeysWithPrefix(k.Prefix)
	}

	for _, key := range keys {
		if _, err := fmt.Fprintln(out, key); err != nil {
			return err
		}
	}

	return nil
}

// Convert writes a configuration file in another format.
type Convert struct {
	File        string `arg:"" help:"Configuration file."`
	To          string `required:"" help:"Output format: yml, json, toml, xml, ini, properties or env." short:"t"`
	Interpolate bool   `help:"Expand variables before writing." short:"i"`
	Output      string `help:"Output file. Standard output is used if not set." short:"o" type:"path"`
}

// Run executes the convert command.
func (c *Convert) Run(cli *CLI, out io.Writer) error {
	format, err := fileconf.FormatByName(c.To)

	if err != nil {
		return err
	}

	config, err := cli.load(c.File)

	if err != nil {
		return err
	}

	if c.Interpolate {
		config, err = config.Interpolated()

		if err != nil {
			return err
		}
	}

	handler := fileconf.NewFileHandler(config, fileconf.WithFormat(format))

	if c.Output != "" {
		return handler.SaveTo(c.Output)
	}

	return handler.Write(out, format)
}
