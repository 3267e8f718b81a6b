package standard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccheshirecat/safepaw/internal/cli/client"
)

func newEventsCmd() *cobra.Command {
	var (
		baseURL   string
		apiKey    string
		transport string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail VM lifecycle events from a running safepaw server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := client.New(baseURL, apiKey)
			if err != nil {
				return err
			}

			var watch func(context.Context, func(client.VMEvent)) error
			switch transport {
			case "sse":
				watch = api.WatchVMEvents
			case "ws", "websocket":
				watch = api.StreamVMEvents
			default:
				return fmt.Errorf("unsupported transport %q (want sse or ws)", transport)
			}

			out := cmd.OutOrStdout()
			err = watch(cmd.Context(), func(ev client.VMEvent) {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.Name, ev.Message)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&baseURL, "api", "a", envOrDefault("SAFEPAW_API_URL", client.DefaultBaseURL), "safepaw API base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", envOrDefault("SAFEPAW_API_KEY", ""), "API key sent as X-Safepaw-API-Key")
	cmd.Flags().StringVar(&transport, "transport", "sse", "Event transport: sse or ws")
	return cmd
}
