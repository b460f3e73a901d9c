package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"golang.org/x/term"

	"github.com/i474232898/sunshine-wear/internal/config"
	"github.com/i474232898/sunshine-wear/internal/face"
	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/transport/wsnet"
	"github.com/i474232898/sunshine-wear/internal/wearable"
)

const WearableVersion = "0.1.0"

const usage = `Sunshine wearable: a terminal watch face showing today's weather from the phone.

Configuration is read from the environment and an optional .env file.

Usage:
    wearable [--url=<url>] [--retry=<duration>] [--v=<level>] [--logtostderr]
    wearable -h | --help
    wearable --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --url=<url>          Companion websocket url, overrides COMPANION_URL.
    --retry=<duration>   Reconnect delay after the link drops [default: 5s].
    --v=<level>          glog verbosity [default: 0].
    --logtostderr        Log to stderr instead of files.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], WearableVersion)
	if err != nil {
		panic(err)
	}
	setupLogging(opts)
	defer glog.Flush()

	cfg, err := config.LoadWearable()
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}
	if url, _ := opts.String("--url"); url != "" {
		cfg.CompanionURL = url
	}
	retryStr, _ := opts.String("--retry")
	retry, err := time.ParseDuration(retryStr)
	if err != nil || retry <= 0 {
		glog.Exitf("invalid --retry %q", retryStr)
	}

	self := transport.Node{ID: transport.NodeID(cfg.NodeID), DisplayName: cfg.NodeName}
	client := wsnet.NewClient(cfg.CompanionURL, self, []byte(cfg.PairingSecret), nil)
	defer client.Close()

	cache := wearable.NewCache()
	endpoint := wearable.NewEndpoint(client, cache)
	defer endpoint.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The face is visible for as long as the process runs.
	endpoint.OnVisibilityChanged(true)
	go reconnect(ctx, endpoint, retry)
	go logUpdates(ctx, cache)

	// Redraw in place on a terminal, one line per tick otherwise.
	format := "%s\n"
	if term.IsTerminal(int(os.Stdout.Fd())) {
		format = "\r%-40s"
	}
	face.NewTicker(cfg.RedrawInterval).Run(ctx, func(now time.Time) {
		fmt.Printf(format, face.OverlayFrom(cache).Line(now))
	})
	fmt.Println()
}

// reconnect re-shows the face after the link was lost or could not be established.
func reconnect(ctx context.Context, endpoint *wearable.Endpoint, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch endpoint.State() {
			case wearable.StateSuspended, wearable.StateFailed:
				glog.Infof("wearable: reconnecting")
				endpoint.OnVisibilityChanged(true)
			}
		}
	}
}

func logUpdates(ctx context.Context, cache *wearable.Cache) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-cache.Updates():
			glog.Infof("wearable: weather %s/%s condition %d retrieved %s",
				rec.HighTemp, rec.LowTemp, rec.ConditionCode, rec.RetrievedTime().Format(time.RFC3339))
		}
	}
}

// setupLogging hands the docopt logging options to glog.
func setupLogging(opts docopt.Opts) {
	flag.CommandLine.Parse(nil)
	if v, _ := opts.String("--v"); v != "" {
		flag.Set("v", v)
	}
	if toStderr, _ := opts.Bool("--logtostderr"); toStderr {
		flag.Set("logtostderr", "true")
	}
}
