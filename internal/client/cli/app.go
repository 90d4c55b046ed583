package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/qrshare/qrshare/internal/client/client"
	"github.com/qrshare/qrshare/internal/client/config"
)

var errUsage = errors.New("usage: qrshare-cli <upload|download|stats|revoke|ping> [flags] [args]")

type App struct {
	config *config.Config
	api    client.Client
	out    io.Writer
	errOut io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewArtifactClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: apiClient, out: os.Stdout, errOut: os.Stderr}, nil
}

func (a *App) Close() error {
	return a.api.Close()
}

// Run executes one command. args must not contain the config flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "upload":
		return a.upload(ctx, rest)
	case "download":
		return a.download(ctx, rest)
	case "stats":
		return a.stats(ctx, rest)
	case "revoke":
		return a.revoke(ctx, rest)
	case "ping":
		return a.ping(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, errUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q; %w", cmd, errUsage)
	}
}

// parseInterspersed lets flags follow positional arguments, which the flag
// package alone does not allow.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}
