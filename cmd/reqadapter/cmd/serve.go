package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/reqadapter/internal/echoserver"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		delay   time.Duration
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the echo server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, cmd.ErrOrStderr())

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}

			handler := echoserver.New(
				echoserver.WithLogger(log),
				echoserver.WithDelay(delay),
				echoserver.WithCORS(origins...),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return echoserver.NewServer(addr, handler, log).Run(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().DurationVar(&delay, "delay", 4*time.Second, "delay for /unit-test-10s")
	cmd.Flags().StringSliceVar(&origins, "cors", nil, "allowed CORS origins")

	return cmd
}
