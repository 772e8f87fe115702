// Command calc is an interactive terminal front end for the calculator
// service. It talks Connect over HTTP by default, or gRPC with -transport grpc.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/form"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/rpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "calc:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		transport  = flag.String("transport", "", "connect or grpc (overrides config)")
		debounce   = flag.Duration("debounce", -1, "delay after the last edit; 0 calculates only on '='")
		verbose    = flag.Bool("v", false, "log debug output to stderr")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *transport != "" {
		cfg.Client.Transport = *transport
	}
	if *debounce >= 0 {
		cfg.Client.Debounce = *debounce
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := zapcore.WarnLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	if err := observability.InitConsoleLogger(level); err != nil {
		return err
	}
	defer observability.SyncLogger()

	client, closeClient, err := dial(cfg.Client)
	if err != nil {
		return err
	}
	defer closeClient()

	observability.Logger.Debug("client ready",
		zap.String("transport", cfg.Client.Transport),
		zap.Duration("debounce", cfg.Client.Debounce),
	)

	fmt.Println(form.PromptText)
	fmt.Println(`type "help" for commands`)

	p := newPrinter(os.Stdout)
	ctl := form.New(client, form.Options{
		Debounce: cfg.Client.Debounce,
		Timeout:  cfg.Client.Timeout,
		OnChange: p.Render,
	})
	defer ctl.Close()

	r := &repl{form: ctl, printer: p, wait: cfg.Client.Timeout + time.Second}
	return loop(r)
}

func dial(cfg config.ClientConfig) (calculator.Calculator, func(), error) {
	if cfg.Transport == config.TransportGRPC {
		c, err := rpc.DialGRPC(cfg.GRPCTarget)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
	return rpc.NewClient(cfg.BaseURL), func() {}, nil
}

func loop(r *repl) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	for {
		input, err := line.Prompt("calc> ")
		switch {
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		line.AppendHistory(input)

		if r.exec(input) {
			return nil
		}
	}
}

var commands = []string{"a ", "b ", "op ", "=", "clear", "show", "help", "quit"}

func complete(prefix string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
