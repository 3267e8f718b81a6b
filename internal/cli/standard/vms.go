package standard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/safepaw/internal/cli/tui"
	"github.com/ccheshirecat/safepaw/internal/vm"
	"github.com/ccheshirecat/safepaw/internal/vm/handlers"
)

type lifecycleOp func(context.Context, vm.API, string) handlers.Result[handlers.Empty]

func newVMCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Manage VM lifecycle through multipass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("mode", string(vm.ModeLocal), "Execution mode: local (default) or network (planned)")
	cmd.PersistentFlags().String("multipass", envOrDefault("SAFEPAW_MULTIPASS", "multipass"), "multipass binary to invoke")

	cmd.AddCommand(newLifecycleCmd(d, "launch", "Launch a new VM", handlers.LaunchVM))
	cmd.AddCommand(newLifecycleCmd(d, "start", "Start a stopped VM", handlers.StartVM))
	cmd.AddCommand(newLifecycleCmd(d, "stop", "Stop a running VM", handlers.StopVM))
	cmd.AddCommand(newLifecycleCmd(d, "restart", "Restart a VM", handlers.RestartVM))
	cmd.AddCommand(newLifecycleCmd(d, "delete", "Delete a VM permanently", handlers.DeleteVM))
	cmd.AddCommand(newVMInfoCmd(d))
	cmd.AddCommand(newVMListCmd(d))
	cmd.AddCommand(newVMWatchCmd(d))
	return cmd
}

// apiFromCmd resolves --mode to a concrete vm.API.
func apiFromCmd(cmd *cobra.Command, d deps) (vm.API, error) {
	rawMode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return nil, err
	}
	mode, err := vm.ParseMode(rawMode)
	if err != nil {
		return nil, err
	}
	binary, err := cmd.Flags().GetString("multipass")
	if err != nil {
		return nil, err
	}
	var tool vm.Multipass
	if mode == vm.ModeLocal {
		tool = d.newMultipass(binary, d.logger.With("component", "multipass"))
	}
	return vm.NewAPI(mode, tool, d.logger.With("component", "vm"))
}

// resultError recovers the error carried by a failed Result.
func resultError[T any](res handlers.Result[T]) error {
	if res.Err != nil {
		return res.Err
	}
	return errors.New(res.Message)
}

func newLifecycleCmd(d deps, verb, short string, op lifecycleOp) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiFromCmd(cmd, d)
			if err != nil {
				return err
			}
			res := op(cmd.Context(), api, args[0])
			if !res.Success {
				return resultError(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newVMInfoCmd(d deps) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Get detailed VM information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			api, err := apiFromCmd(cmd, d)
			if err != nil {
				return err
			}
			res := handlers.GetVMInfo(cmd.Context(), api, args[0])
			if !res.Success {
				return resultError(res)
			}
			out := cmd.OutOrStdout()
			if format != outputText {
				return encodeStructured(out, format, statusView(*res.Data))
			}
			for _, line := range FormatStatus(*res.Data) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newVMListCmd(d deps) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all VMs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			api, err := apiFromCmd(cmd, d)
			if err != nil {
				return err
			}
			res := handlers.ListVMs(cmd.Context(), api)
			if !res.Success {
				return resultError(res)
			}
			vms := *res.Data
			out := cmd.OutOrStdout()
			if format != outputText {
				views := make([]vmView, 0, len(vms))
				for _, s := range vms {
					views = append(views, summaryView(s))
				}
				return encodeStructured(out, format, views)
			}
			if len(vms) == 0 {
				fmt.Fprintln(out, "No VMs found")
				return nil
			}
			for _, s := range vms {
				fmt.Fprintln(out, FormatSummary(s))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newVMWatchCmd(d deps) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive dashboard of VMs, refreshed periodically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			if d.isTerminal != nil && !d.isTerminal() {
				return fmt.Errorf("vm watch needs an interactive terminal; use `safepaw vm list` instead")
			}
			api, err := apiFromCmd(cmd, d)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), api, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval")
	return cmd
}
