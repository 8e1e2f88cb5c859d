package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"singleapp/internal/config"
	"singleapp/internal/directory"
	"singleapp/internal/singleton"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var serverMode bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim the service or hand off to the running instance",
		Long: "Claim the configured service. When another process already owns it, ask that\n" +
			"process to bring its UI to front and exit. Otherwise show the terminal UI (or\n" +
			"wait headless with --server) until the UI closes or every attached client leaves.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.serviceName(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withDirectory(func(cfg *config.Config, store *directory.Store) error {
				out := cmd.OutOrStdout()
				headless := serverMode || cfg.Service.StartInServerMode
				claimed, err := singleton.WithClaim(runCtx, claimOptions(cfg, store, headless, logger),
					func(runCtx context.Context, coord *singleton.Coordinator) error {
						stopInput := make(chan struct{})
						defer close(stopInput)
						ui := &terminalUI{coord: coord, out: out, lines: readLines(cmd.InOrStdin(), stopInput)}
						cancel := coord.OnBringToFront(func() {
							fmt.Fprintf(out, "%s: brought to front\n", coord.ServiceName())
						})
						defer cancel()

						if headless {
							fmt.Fprintf(out, "%s: running in server mode (pid %d)\n", coord.ServiceName(), os.Getpid())
						}
						return coord.RunUntilExit(runCtx, ui.start)
					})
				if err != nil {
					return err
				}
				if !claimed {
					fmt.Fprintf(out, "%s is already running; handed off to the running instance\n", cfg.Service.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&serverMode, "server", false, "Start headless and wait for clients")
	return cmd
}

// terminalUI stands in for a window: it is open until a line arrives on stdin
// or the command is interrupted.
type terminalUI struct {
	coord *singleton.Coordinator
	out   io.Writer
	lines <-chan string
}

func (u *terminalUI) start(ctx context.Context) error {
	fmt.Fprintf(u.out, "%s: ui open (press Enter to close)\n", u.coord.ServiceName())
	if err := u.coord.SignalUIReady(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-u.lines:
	}
	fmt.Fprintf(u.out, "%s: ui closed\n", u.coord.ServiceName())
	return nil
}

// readLines delivers stdin lines until EOF or until done closes; the channel
// closes either way.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
