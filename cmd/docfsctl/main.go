// Command docfsctl drives a docfs server from the shell.
//
//	docfsctl --server http://localhost:8080 mkdir docs/report/word
//	docfsctl write docs/report/word/document.xml < document.xml
//	docfsctl mkdocx docs/report
//	docfsctl read docs/report.docx/word/document.xml
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/GriffinCanCode/docfs/internal/client"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "docfsctl:", err)
		if errors.Is(err, client.ErrNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	app := &cli.App{
		Name:      "docfsctl",
		Usage:     "run docfs commands against a server",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "docfs base URL",
				EnvVars: []string{"DOCFS_SERVER"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "per-request timeout",
			},
			&cli.IntFlag{
				Name:  "retries",
				Value: 3,
				Usage: "retries on connection errors and overload responses",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log requests to stderr",
			},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "mkdir",
			Usage:     "create a directory and its parents",
			ArgsUsage: "<path>",
			Action: withClient(func(c *cli.Context, fs *client.Client, path string) error {
				return fs.Mkdir(c.Context, path)
			}),
		},
		{
			Name:      "read",
			Usage:     "print a file, or an entry inside a .zip or .docx",
			ArgsUsage: "<path>",
			Action: withClient(func(c *cli.Context, fs *client.Client, path string) error {
				content, err := fs.Read(c.Context, path)
				if err != nil {
					return err
				}
				_, err = c.App.Writer.Write(content.Body)
				return err
			}),
		},
		{
			Name:      "write",
			Usage:     "replace a file with the contents of --file or stdin",
			ArgsUsage: "<path>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"f"},
					Usage:   "read the body from this file instead of stdin",
				},
			},
			Action: withClient(func(c *cli.Context, fs *client.Client, path string) error {
				var (
					data []byte
					err  error
				)
				if name := c.String("file"); name != "" {
					data, err = os.ReadFile(name)
				} else {
					data, err = io.ReadAll(c.App.Reader)
				}
				if err != nil {
					return err
				}
				return fs.Write(c.Context, path, data)
			}),
		},
		{
			Name:      "remove",
			Usage:     "delete a file or empty directory",
			ArgsUsage: "<path>",
			Action: withClient(func(c *cli.Context, fs *client.Client, path string) error {
				return fs.Remove(c.Context, path)
			}),
		},
		{
			Name:      "mkdocx",
			Usage:     "package a directory into a .docx",
			ArgsUsage: "<path>",
			Action: withClient(func(c *cli.Context, fs *client.Client, path string) error {
				return fs.Mkdocx(c.Context, path)
			}),
		},
	}

	return app
}

// withClient checks for exactly one path argument and builds a client from
// the global flags.
func withClient(fn func(c *cli.Context, fs *client.Client, path string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("%s: expected exactly one path argument", c.Command.Name)
		}

		logger := logging.NewNop()
		if c.Bool("verbose") {
			logger = logging.FromSettings("debug", true)
		}

		fs, err := client.New(client.Config{
			BaseURL:  c.String("server"),
			Timeout:  c.Duration("timeout"),
			RetryMax: c.Int("retries"),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		return fn(c, fs, c.Args().First())
	}
}
