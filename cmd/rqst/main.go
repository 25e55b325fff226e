package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adda-Baaj/rqst/internal/app"
	"github.com/Adda-Baaj/rqst/internal/config"
	"github.com/Adda-Baaj/rqst/internal/logger"
	"github.com/Adda-Baaj/rqst/pkg/rqst"
)

const usage = `usage:
  rqst get URL [flags]
  rqst do METHOD URL [flags]
  rqst history [--limit N]`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rqst: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configFile     string
	debug          bool
	headers        []string
	profile        string
	mode           string
	schemaFile     string
	anyContentType bool
	selector       string
	title          bool
	limit          int
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]

	var f cliFlags
	fs := pflag.NewFlagSet("rqst "+cmd, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configFile, "config", "", "config file (yaml/json/toml)")
	fs.BoolVar(&f.debug, "debug", false, "log transport diagnostics")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	fs.StringVarP(&f.profile, "profile", "p", "", "header profile id")
	fs.StringVarP(&f.mode, "mode", "m", app.ModeBody, "read mode: body, text or json")
	fs.StringVar(&f.schemaFile, "schema", "", "JSON Schema file used to validate json mode")
	fs.BoolVar(&f.anyContentType, "any-content-type", false, "accept any Content-Type in json mode")
	fs.StringVar(&f.selector, "select", "", "CSS selector applied to the body in text mode")
	fs.BoolVar(&f.title, "title", false, "print the page title in text mode")
	fs.IntVarP(&f.limit, "limit", "n", 20, "number of history entries")

	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	positional := fs.Args()

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}

	sugar, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()
	log := logger.NewZapLogger(sugar)

	runner, err := app.NewRunner(cfg, log, app.Options{Sugar: sugar, Debug: f.debug})
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err)
		return err
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "get":
		if len(positional) != 1 {
			return errors.New(usage)
		}
		return runner.Fetch(ctx, f.request(rqst.MethodGet, positional[0]), stdout)
	case "do":
		if len(positional) != 2 {
			return errors.New(usage)
		}
		method, err := resolveMethod(positional[0])
		if err != nil {
			return err
		}
		return runner.Fetch(ctx, f.request(method, positional[1]), stdout)
	case "history":
		return runner.History(f.limit, stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (f cliFlags) request(method rqst.Method, url string) app.Request {
	return app.Request{
		Method:              method,
		URL:                 url,
		Profile:             f.profile,
		Headers:             f.headers,
		Mode:                f.mode,
		SchemaFile:          f.schemaFile,
		AllowAnyContentType: f.anyContentType,
		Select:              f.selector,
		Title:               f.title,
	}
}

// resolveMethod accepts standard methods in any case and passes other verbs through unchanged.
func resolveMethod(name string) (rqst.Method, error) {
	if m, err := rqst.ParseMethod(name); err == nil {
		return m, nil
	}
	return rqst.CustomMethod(strings.TrimSpace(name))
}
