package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/structbio/go-mrc/mrc"
)

func main() {
	app := &cli.App{
		Name:  "mrc",
		Usage: "inspect and validate MRC2014 files",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check files against the MRC2014 format rules",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "jobs",
						Value: 4,
						Usage: "number of files checked concurrently",
					},
				},
				Action: runValidate,
			},
			{
				Name:      "header",
				Usage:     "print every header field of a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "permissive",
						Usage: "open damaged files and report their problems",
					},
				},
				Action: runHeader,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mrc:", err)
		os.Exit(1)
	}
}

func runValidate(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("validate: no files given", 2)
	}

	type result struct {
		valid bool
		text  string
		err   error
	}
	results := make([]result, len(paths))

	var g errgroup.Group
	g.SetLimit(c.Int("jobs"))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			var buf strings.Builder
			valid, err := mrc.ValidateFile(path, &buf)
			results[i] = result{valid: valid, text: buf.String(), err: err}
			return nil
		})
	}
	g.Wait()

	anyInvalid := false
	for i, path := range paths {
		r := results[i]
		switch {
		case r.err != nil:
			anyInvalid = true
			fmt.Printf("%s: error: %v\n", path, r.err)
		case r.valid:
			fmt.Printf("%s: ok\n", path)
		default:
			anyInvalid = true
			fmt.Printf("%s: INVALID\n", path)
			for _, line := range strings.Split(strings.TrimRight(r.text, "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
	}
	if anyInvalid {
		return cli.Exit("", 1)
	}
	return nil
}

func runHeader(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("header: exactly one file expected", 2)
	}
	path := c.Args().First()

	opts := []mrc.Option{}
	if c.Bool("permissive") {
		opts = append(opts, mrc.Permissive())
	}
	f, err := mrc.Open(path, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, w := range f.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return f.Header().Dump(os.Stdout)
}
