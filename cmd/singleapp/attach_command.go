package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"singleapp/internal/config"
	"singleapp/internal/directory"
)

func newAttachCommand(ctx *commandContext) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach as a client of the running instance until interrupted",
		Long: "Attach registers this process as a client of the running instance. The\n" +
			"instance exits once more than one client has attached and all of them left.",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := ctx.serviceName()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(clientID)
			if id == "" {
				id = uuid.NewString()
			}

			waitCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withDirectory(func(cfg *config.Config, store *directory.Store) error {
				remote, err := store.Lookup(waitCtx, name)
				if err != nil {
					return err
				}
				if remote == nil {
					return fmt.Errorf("service %s is not running; start it with `singleapp run --service %s`", name, name)
				}
				defer remote.Close()

				callCtx, cancel := context.WithTimeout(waitCtx, cfg.Durations().RemoteCallTimeout)
				err = remote.Attach(callCtx, id)
				cancel()
				if err != nil {
					return fmt.Errorf("attach to %s: %w", name, err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Attached to %s as %s; interrupt to detach\n", name, id)

				<-waitCtx.Done()

				detachCtx, cancel := context.WithTimeout(context.Background(), cfg.Durations().RemoteCallTimeout)
				defer cancel()
				if err := remote.Detach(detachCtx, id); err != nil {
					return fmt.Errorf("detach from %s: %w", name, err)
				}
				fmt.Fprintf(out, "Detached %s from %s\n", id, name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&clientID, "id", "", "Client id (defaults to a random UUID)")
	return cmd
}
