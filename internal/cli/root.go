// Package cli implements recipectl, a terminal client for the recipe
// catalog.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/config"
	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/logging"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
)

const name = "recipectl"

// DefaultDebounce is how long browse waits after the last keystroke-driven
// search before sending it.
const DefaultDebounce = 300 * time.Millisecond

// Options wires the CLI to its collaborators. Nil fields are built from the
// environment configuration when a command runs.
type Options struct {
	API      recipeapi.API
	Config   *config.Config
	Logger   *zap.Logger
	In       io.Reader
	Out      io.Writer
	Debounce time.Duration
}

type app struct {
	opts     Options
	apiURL   string
	logLevel string

	cfg    *config.Config
	api    recipeapi.API
	logger *zap.Logger
}

// NewRootCommand builds the recipectl command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:               name,
		Short:             "Search and explore recipes from the terminal",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	if opts.In != nil {
		root.SetIn(opts.In)
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "catalog base URL (overrides RECIPE_API_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.searchCmd(),
		a.showCmd(),
		a.excludeCmd(),
		a.browseCmd(),
		a.tokenCmd(),
	)
	return root
}

// Execute runs recipectl until it finishes or receives SIGINT/SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(Options{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = a.opts.Config
	if a.cfg == nil {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	a.logger = a.opts.Logger
	if a.logger == nil {
		logger, err := logging.New(a.cfg.Environment, a.logLevel)
		if err != nil {
			return err
		}
		a.logger = logger
	}

	a.api = a.opts.API
	if a.api == nil {
		baseURL := a.cfg.RecipeAPIURL
		if a.apiURL != "" {
			baseURL = a.apiURL
		}
		a.api = recipeapi.New(httpclient.New(baseURL,
			httpclient.WithTimeout(a.cfg.HTTPTimeout),
			httpclient.WithMaxRetries(a.cfg.HTTPMaxRetries),
			httpclient.WithLogger(a.logger),
		))
		a.logger.Debug("using catalog", zap.String("url", baseURL))
	}
	return nil
}

// userError carries the message a person should see while keeping the
// underlying error for errors.Is and errors.As.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func friendly(err error) error {
	if err == nil {
		return nil
	}
	return &userError{msg: httpclient.UserMessage(err), err: err}
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
