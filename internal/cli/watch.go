package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"silentwave/internal/audio"
	"silentwave/internal/events"
	"silentwave/internal/logger"
	"silentwave/internal/monitor"
	"silentwave/internal/reducer"
)

type watchOptions struct {
	server   string
	cities   []string
	mute     bool
	news     bool
	interval time.Duration
}

func WatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow alerts from a running server in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitWithOutput(cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "SilentWave server URL")
	cmd.Flags().StringSliceVar(&opts.cities, "cities", nil, "Only alert for these cities (comma-separated)")
	cmd.Flags().BoolVar(&opts.mute, "mute", false, "Do not ring the terminal bell")
	cmd.Flags().BoolVar(&opts.news, "news", false, "Print news headlines")
	cmd.Flags().DurationVar(&opts.interval, "interval", monitor.DefaultAlertInterval, "Alert poll interval")
	return cmd
}

// lockedWriter serializes the bell goroutine and the event printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func watch(ctx context.Context, w io.Writer, opts watchOptions) error {
	out := &lockedWriter{w: w}
	broker := events.NewBroker()

	var player audio.Player = audio.Nop{}
	if !opts.mute {
		player = audio.NewBellPlayer(out, time.Second)
	}
	r := reducer.New(reducer.Options{Player: player, Sink: broker})
	r.SetSelectedCities(opts.cities)
	if !opts.mute {
		r.UnlockAudio()
	}
	defer player.StopSiren()

	src := monitor.NewHTTPSource(opts.server, 5*time.Second)
	var news monitor.NewsSource
	if opts.news {
		news = src
	}
	mon := monitor.New(src, news, r, broker, nil, monitor.Config{AlertInterval: opts.interval})

	sub := broker.Subscribe(nil)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		mon.Run(ctx)
	}()

	p := &printer{out: out}
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case ev := <-sub.Chan():
			p.print(ev)
		}
	}
}
