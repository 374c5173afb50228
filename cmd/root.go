package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/output"
	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/session"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

type rootFlags struct {
	prefix         string
	output         string
	verbose        bool
	debug          bool
	ignoreWarnings bool
	configPath     string
	jsonOutput     bool
}

// NewRootCmd builds the bstest command. appOpts are applied after the
// harness configuration, so tests can replace any dependency.
func NewRootCmd(appOpts ...app.Option) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "bstest",
		Short: "Run the detector integration suite",
		Long: `bstest runs a fixed suite of integration tests against a simulated
area detector.

With --prefix the tests run against an existing, reachable instance.
Without it, each test spawns a disposable simulated detector in a
container (podman or docker) and kills it when the test ends.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, flags, appOpts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.prefix, "prefix", "p", "", "Prefix of an existing target to test against")
	f.StringVarP(&flags.output, "output", "o", "", "File to append session output to (default stdout)")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Run test cases in verbose mode")
	f.BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	f.BoolVarP(&flags.ignoreWarnings, "ignore-warnings", "i", false, "Suppress warnings from the test runner")
	f.StringVarP(&flags.configPath, "config", "c", "", "Harness config file (default ./bstest.toml)")
	f.BoolVar(&flags.jsonOutput, "json", false, "Output logs in JSON format")
	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

func runSession(cmd *cobra.Command, flags *rootFlags, appOpts []app.Option) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Setup(flags.debug, flags.jsonOutput, cmd.ErrOrStderr())

	harness, err := config.LoadHarnessConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "ERROR - %v\n", err)
		return errors.ValidationFailed(err.Error())
	}

	a := app.New(append([]app.Option{app.WithHarness(harness)}, appOpts...)...)

	o := session.New(a, config.RawArgs{
		Prefix:         flags.prefix,
		Output:         flags.output,
		Verbose:        flags.verbose,
		Debug:          flags.debug,
		IgnoreWarnings: flags.ignoreWarnings,
	},
		session.WithVersion(Version),
		session.WithConsole(cmd.OutOrStdout()),
		session.WithSinkHook(func(s *output.Sink) {
			// Keep diagnostics with the session record when writing to a file.
			if s.IsFile() {
				logging.Setup(flags.debug, flags.jsonOutput, s)
			}
		}),
	)

	outcome := o.Run(ctx)

	// Run has closed a file sink; point logging back at stderr.
	logging.Setup(flags.debug, flags.jsonOutput, cmd.ErrOrStderr())
	logging.Debug("session finished", "outcome", outcome.Kind, "exit_code", outcome.ExitCode)
	return outcome.Err()
}

// Execute runs the root command and returns an error carrying the exit code.
func Execute() error {
	return execute(context.Background(), NewRootCmd(), os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) error {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var harnessErr *errors.HarnessError
	if errors.As(err, &harnessErr) {
		return err
	}

	// Flag and argument errors from cobra.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
	return errors.Wrap(errors.ExitValidation, "invalid arguments", err)
}
