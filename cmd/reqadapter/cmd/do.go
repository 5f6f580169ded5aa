package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/reqadapter/client"
	"github.com/adamwoolhether/reqadapter/cmd/reqadapter/config"
)

func newDoCmd() *cobra.Command {
	var (
		progress bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "do [request-file]",
		Short: "Send the request described in a YAML file",
		Example: `  reqadapter do get.yaml
  reqadapter do --progress --timeout 30s upload.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}

			d, err := req.Descriptor()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("timeout") {
				d.Options.Timeout = timeout
			}

			errOut := cmd.ErrOrStderr()
			if progress {
				d.Options.EnableDownload = true
				d.Options.EnableUpload = true
				d.Options.OnDownload = func(loaded, total int64) {
					fmt.Fprintf(errOut, "download %s\n", ratio(loaded, total))
				}
				d.Options.OnUpload = func(loaded, total int64) {
					fmt.Fprintf(errOut, "upload %s\n", ratio(loaded, total))
				}
			}

			c, err := client.Build(
				client.WithLogger(newLogger(cmd, errOut)),
				client.WithUserAgent("reqadapter/"+version),
			)
			if err != nil {
				return fmt.Errorf("building client: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h := c.Request(d)
			go func() {
				select {
				case <-ctx.Done():
					h.Abort()
				case <-h.Done():
				}
			}()

			resp, err := h.Response(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().BoolVar(&progress, "progress", false, "report upload and download progress on stderr")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override the request timeout")

	return cmd
}

func ratio(loaded, total int64) string {
	if total <= 0 {
		return humanize.Bytes(uint64(loaded))
	}
	return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(loaded)), humanize.Bytes(uint64(total)))
}
