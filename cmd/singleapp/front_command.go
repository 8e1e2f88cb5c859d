package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"singleapp/internal/config"
	"singleapp/internal/directory"
	"singleapp/internal/singleton"
)

func newFrontCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "front",
		Short: "Ask the running instance to bring its UI to front",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := ctx.serviceName()
			if err != nil {
				return err
			}
			return ctx.withDirectory(func(cfg *config.Config, store *directory.Store) error {
				return withRemote(cmd.Context(), cfg, store, name, func(callCtx context.Context, remote singleton.Remote) error {
					if err := remote.BringToFront(callCtx); err != nil {
						return fmt.Errorf("bring %s to front: %w", name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Asked %s to come to front\n", name)
					return nil
				})
			})
		},
	}
}

// withRemote looks up name and runs fn with a call context bounded by the
// remote call timeout.
func withRemote(ctx context.Context, cfg *config.Config, store *directory.Store, name string, fn func(context.Context, singleton.Remote) error) error {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Durations().RemoteCallTimeout)
	defer cancel()
	remote, err := store.Lookup(callCtx, name)
	if err != nil {
		return err
	}
	if remote == nil {
		return fmt.Errorf("service %s is not running; start it with `singleapp run --service %s`", name, name)
	}
	defer remote.Close()
	return fn(callCtx, remote)
}
