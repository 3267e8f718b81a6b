package standard

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/safepaw/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var (
		opts      setup.Options
		printUnit bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install SafePaw as a systemd service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			if opts.BinaryPath == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				opts.BinaryPath = exe
			}

			res, err := setup.Run(ctx, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Commands) > 0 {
				fmt.Fprintln(out, "Commands executed:")
				for _, line := range res.Commands {
					fmt.Fprintf(out, "  %s\n", line)
				}
			}
			if printUnit {
				fmt.Fprintln(out)
				fmt.Fprint(out, res.Unit)
			}
			if opts.DryRun {
				fmt.Fprintln(out, "Dry run complete. Re-run without --dry-run as root to apply changes.")
			} else {
				fmt.Fprintln(out, "Setup completed successfully.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "safepaw binary the service runs (default: this executable)")
	cmd.Flags().StringVar(&opts.MultipassBinary, "multipass", envOrDefault("SAFEPAW_MULTIPASS", "multipass"), "multipass binary to resolve on PATH")
	cmd.Flags().StringVar(&opts.Host, "host", envOrDefault("SAFEPAW_HOST", "0.0.0.0"), "Host address the service binds")
	cmd.Flags().IntVar(&opts.UIPort, "ui-port", 8888, "Port for the UI server")
	cmd.Flags().IntVar(&opts.APIPort, "api-port", 8889, "Port for the REST API server")
	cmd.Flags().StringVar(&opts.ServicePath, "service-file", setup.DefaultServicePath, "Path to write systemd service unit")
	cmd.Flags().StringVar(&opts.User, "user", "", "User the service runs as (default root)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print commands without executing them")
	cmd.Flags().BoolVar(&opts.NoEnable, "no-enable", false, "Write the unit without enabling it")
	cmd.Flags().BoolVar(&printUnit, "print-unit", false, "Print the rendered unit file")

	return cmd
}
