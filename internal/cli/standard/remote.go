package standard

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/safepaw/internal/cli/client"
	"github.com/ccheshirecat/safepaw/internal/vm"
)

type remoteOp func(*client.Client, context.Context, string) (string, error)

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive a running safepaw server over its REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("api", "a", envOrDefault("SAFEPAW_API_URL", client.DefaultBaseURL), "safepaw API base URL")
	cmd.PersistentFlags().String("api-key", envOrDefault("SAFEPAW_API_KEY", ""), "API key sent as X-Safepaw-API-Key")

	cmd.AddCommand(newRemoteHealthCmd())
	cmd.AddCommand(newRemoteLifecycleCmd("launch", "Launch a new VM", (*client.Client).LaunchVM))
	cmd.AddCommand(newRemoteLifecycleCmd("start", "Start a stopped VM", (*client.Client).StartVM))
	cmd.AddCommand(newRemoteLifecycleCmd("stop", "Stop a running VM", (*client.Client).StopVM))
	cmd.AddCommand(newRemoteLifecycleCmd("restart", "Restart a VM", (*client.Client).RestartVM))
	cmd.AddCommand(newRemoteLifecycleCmd("delete", "Delete a VM permanently", (*client.Client).DeleteVM))
	cmd.AddCommand(newRemoteInfoCmd())
	cmd.AddCommand(newRemoteListCmd())
	return cmd
}

func clientFromCmd(cmd *cobra.Command) (*client.Client, error) {
	baseURL, err := cmd.Flags().GetString("api")
	if err != nil {
		return nil, err
	}
	apiKey, err := cmd.Flags().GetString("api-key")
	if err != nil {
		return nil, err
	}
	return client.New(baseURL, apiKey)
}

func newRemoteHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API listener answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := api.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newRemoteLifecycleCmd(verb, short string, op remoteOp) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			msg, err := op(api, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newRemoteInfoCmd() *cobra.Command {
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
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			remote, err := api.GetVM(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status := statusFromClient(*remote)
			out := cmd.OutOrStdout()
			if format != outputText {
				return encodeStructured(out, format, statusView(status))
			}
			for _, line := range FormatStatus(status) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newRemoteListCmd() *cobra.Command {
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
			api, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			vms, err := api.ListVMs(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format != outputText {
				views := make([]vmView, 0, len(vms))
				for _, v := range vms {
					views = append(views, summaryView(summaryFromClient(v)))
				}
				return encodeStructured(out, format, views)
			}
			if len(vms) == 0 {
				fmt.Fprintln(out, "No VMs found")
				return nil
			}
			for _, v := range vms {
				fmt.Fprintln(out, FormatSummary(summaryFromClient(v)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func statusFromClient(v client.VM) vm.Status {
	return vm.Status{
		Name:         v.Name,
		State:        v.State,
		IPv4:         v.IPv4,
		Release:      v.Release,
		ImageRelease: v.ImageRelease,
		CPUCount:     v.CPUCount,
		MemoryTotal:  v.MemoryTotal,
		MemoryUsed:   v.MemoryUsed,
		DiskTotal:    v.DiskTotal,
		DiskUsed:     v.DiskUsed,
	}
}

func summaryFromClient(v client.VM) vm.Summary {
	return vm.Summary{Name: v.Name, State: v.State, IPv4: v.IPv4, Release: v.Release}
}
