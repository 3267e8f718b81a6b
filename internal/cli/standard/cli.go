package standard

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ccheshirecat/safepaw/internal/multipass"
	"github.com/ccheshirecat/safepaw/internal/server/app"
	"github.com/ccheshirecat/safepaw/internal/server/config"
	"github.com/ccheshirecat/safepaw/internal/shared/logging"
	"github.com/ccheshirecat/safepaw/internal/vm"
)

// Version is overridden at link time with -ldflags "-X ...standard.Version=...".
var Version = "dev"

// Execute runs the Cobra-based CLI entry point.
func Execute(ctx context.Context) error {
	return newRootCmd(defaultDeps()).ExecuteContext(ctx)
}

// deps holds the collaborators commands reach for, so tests can swap the
// multipass adapter and the server runtime.
type deps struct {
	logger       *slog.Logger
	newMultipass func(binary string, logger *slog.Logger) vm.Multipass
	serve        func(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error
	isTerminal   func() bool
}

func defaultDeps() deps {
	return deps{
		logger: logging.New("safepaw"),
		newMultipass: func(binary string, logger *slog.Logger) vm.Multipass {
			return multipass.New(binary, multipass.ExecExecutor{}, logger)
		},
		serve: app.Serve,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "safepaw",
		Short:         "Agents for the paranoid.",
		Long:          "SafePaw orchestrates isolated agent runtimes backed by Multipass VMs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newStartCmd(d))
	cmd.AddCommand(newVMCmd(d))
	cmd.AddCommand(newEventsCmd())
	cmd.AddCommand(newRemoteCmd())
	cmd.AddCommand(newSetupCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the SafePaw version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "safepaw %s\n", Version)
		},
	}
}
