package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/linusheck/synthesis/pkg/filemonitor"
)

func newWatchCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Run the queries of problems again whenever their files change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := o.filter()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return o.watch(ctx, cmd, args, filter)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

func (o *options) watch(ctx context.Context, cmd *cobra.Command, paths []string, filter *gojq.Query) error {
	var mu sync.Mutex
	answer := func(path string) {
		r, err := o.run(path)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			o.logger.WithError(err).WithField("problem", path).Warn("failed to answer problem")
			return
		}
		if err := render(cmd.OutOrStdout(), r, filter); err != nil {
			o.logger.WithError(err).WithField("problem", path).Warn("failed to render report")
		}
	}

	w, err := filemonitor.NewWatch(o.logger, paths, answer)
	if err != nil {
		return err
	}
	w.Run(ctx)
	for _, path := range paths {
		answer(path)
	}
	<-ctx.Done()
	return nil
}
