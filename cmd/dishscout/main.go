// cmd/dishscout/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dishscout/internal/common/config"
	"dishscout/internal/common/errors"
	"dishscout/internal/common/logger"
	"dishscout/internal/common/observability"
	"dishscout/internal/common/session"
	"dishscout/internal/geolocation"
	"dishscout/internal/lifecycle"
	"dishscout/internal/taskclient"

	dishsearch "dishscout/internal/flows/dish-search"
	venuelink "dishscout/internal/flows/venue-link"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a config file (defaults to ./configs/config.yaml)")
		flowName    = flag.String("flow", dishsearch.FlowName, "flow to run: dish-search or venue-link")
		dish        = flag.String("dish", "", "dish to search for (dish-search flow)")
		location    = flag.String("location", "", "location to search around (dish-search flow)")
		radius      = flag.String("radius", "", "search radius in km (dish-search flow)")
		useCurrent  = flag.Bool("use-current-location", false, "search around the current position (dish-search flow)")
		link        = flag.String("link", "", "Google Maps link of the venue (venue-link flow)")
		resumeFlag  = flag.Bool("resume", false, "resume a task left behind by a previous session instead of submitting")
	)
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dishscout...",
		zap.String("flow", *flowName),
		zap.String("service", cfg.Service.BaseURL),
	)

	obs := observability.New("dishscout")
	defer obs.Shutdown()

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Task service client ---
	client := taskclient.NewClient(cfg.Service.BaseURL, config.GetDuration(cfg.Service.RequestTimeout), log)

	// --- Geolocation: acquired once, in the background, never blocking ---
	var geo *geolocation.Provider
	if cfg.Geolocation.SourceURL != "" {
		source := geolocation.NewHTTPSource(cfg.Geolocation.SourceURL, config.GetDuration(cfg.Geolocation.Timeout))
		geo = geolocation.NewProvider(source, config.GetDuration(cfg.Geolocation.Timeout), cfg.Geolocation.HighAccuracy, log)
		go geo.Acquire(ctx)
	}

	// --- Session store (optional) ---
	var opts []lifecycle.Option
	if cfg.Session.Enabled {
		store, err := session.New(cfg.Session)
		if err != nil {
			zapLog.Fatal("session store init failed", zap.Error(err))
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			zapLog.Fatal("session store unreachable", zap.Error(err))
		}
		opts = append(opts, lifecycle.WithSessionStore(store))
	}
	opts = append(opts, lifecycle.WithObservability(obs))

	ctrl, req, err := buildFlow(cfg, client, geo, log, *flowName, flowInput{
		dish:       *dish,
		location:   *location,
		radius:     *radius,
		useCurrent: *useCurrent,
		link:       *link,
	}, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if *resumeFlag {
		resumed, err := ctrl.Resume(ctx)
		if err != nil {
			zapLog.Fatal("resume failed", zap.Error(err))
		}
		if !resumed {
			fmt.Println("No task to resume.")
			return
		}
	} else {
		if err := ctrl.Submit(ctx, req); err != nil {
			stdErr := errors.Normalize(err)
			fmt.Fprintln(os.Stderr, stdErr.UserMessage())
			os.Exit(2)
		}
	}

	os.Exit(watch(ctx, ctrl))
}

type flowInput struct {
	dish       string
	location   string
	radius     string
	useCurrent bool
	link       string
}

// buildFlow wires the controller and request for the selected flow. Each
// flow carries its own poll cadence.
func buildFlow(cfg *config.Config, client *taskclient.Client, geo *geolocation.Provider, log logger.Logger, flowName string, input flowInput, opts []lifecycle.Option) (*lifecycle.Controller, lifecycle.Request, error) {
	switch flowName {
	case dishsearch.FlowName:
		fc := cfg.Flows.DishSearch
		poller := taskclient.NewPoller(client, dishsearch.FlowName, config.GetDuration(fc.PollInterval), fc.MaxPollAttempts, log)
		ctrl := lifecycle.NewController(dishsearch.FlowName, poller, func(raw json.RawMessage) (interface{}, error) {
			return dishsearch.DecodeResult(raw)
		}, log, append(opts, lifecycle.WithLabels(lifecycle.Labels{
			lifecycle.StateSubmitting: "Finding restaurants…",
			lifecycle.StateAnalyzing:  "Analyzing dish quality…",
			lifecycle.StateFinalizing: "Preparing your recommendations…",
		}))...)
		req := &dishsearch.Submission{
			Input: &dishsearch.Input{
				Dish:               input.dish,
				Location:           input.location,
				Radius:             input.radius,
				UseCurrentLocation: input.useCurrent,
			},
			Client: client,
			Geo:    geo,
		}
		return ctrl, req, nil

	case venuelink.FlowName:
		fc := cfg.Flows.VenueLink
		poller := taskclient.NewPoller(client, venuelink.FlowName, config.GetDuration(fc.PollInterval), fc.MaxPollAttempts, log)
		ctrl := lifecycle.NewController(venuelink.FlowName, poller, func(raw json.RawMessage) (interface{}, error) {
			return venuelink.DecodeResult(raw)
		}, log, append(opts, lifecycle.WithLabels(lifecycle.Labels{
			lifecycle.StateSubmitting: "Fetching reviews…",
			lifecycle.StateAnalyzing:  "Analyzing dish quality…",
			lifecycle.StateFinalizing: "Preparing your recommendations…",
		}))...)
		req := &venuelink.Submission{
			Input:  &venuelink.Input{Link: input.link},
			Client: client,
		}
		return ctrl, req, nil

	default:
		return nil, nil, fmt.Errorf("unknown flow %q (want %s or %s)", flowName, dishsearch.FlowName, venuelink.FlowName)
	}
}

// watch consumes lifecycle updates until a terminal state, printing each
// phase label once and then rendering the outcome.
func watch(ctx context.Context, ctrl *lifecycle.Controller) int {
	lastLabel := ""
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "Interrupted.")
			return 130
		case snap := <-ctrl.Updates():
			if snap.Label != "" && snap.Label != lastLabel && !snap.State.Terminal() {
				fmt.Println(snap.Label)
				lastLabel = snap.Label
			}

			switch snap.State {
			case lifecycle.StateCompleted:
				render(snap.Result)
				ctrl.Acknowledge()
				return 0
			case lifecycle.StateFailed:
				fmt.Fprintln(os.Stderr, snap.Error)
				ctrl.Acknowledge()
				return 1
			}
		}
	}
}

func render(result interface{}) {
	switch r := result.(type) {
	case *dishsearch.Result:
		renderRestaurants(r)
	case *venuelink.Result:
		renderAnalysis(r)
	default:
		fmt.Printf("%+v\n", result)
	}
}

func renderRestaurants(r *dishsearch.Result) {
	if len(r.Restaurants) == 0 {
		fmt.Println("No restaurants found.")
		return
	}

	fmt.Printf("Top spots for %s:\n\n", r.Dish)
	for i, rest := range r.Restaurants {
		fmt.Printf("%d. %s", i+1, rest.Name)
		if rest.Rating > 0 {
			fmt.Printf("  (%.1f)", rest.Rating)
		}
		fmt.Println()
		if rest.Address != "" {
			fmt.Printf("   %s\n", rest.Address)
		}
		if rest.Analysis.Quality != "" {
			fmt.Printf("   Quality: %s\n", rest.Analysis.Quality)
		}
		if rest.Analysis.Recommendation != "" {
			fmt.Printf("   %s\n", rest.Analysis.Recommendation)
		}
		if rest.MapLink != "" {
			fmt.Printf("   %s\n", rest.MapLink)
		}
		fmt.Println()
	}
}

func renderAnalysis(r *venuelink.Result) {
	fmt.Printf("%s\n\n", r.RestaurantName)

	if r.Analysis.BestDish.Name != "" {
		fmt.Printf("Best dish: %s\n", r.Analysis.BestDish.Name)
		if r.Analysis.BestDish.Description != "" {
			fmt.Printf("  %s\n", r.Analysis.BestDish.Description)
		}
		fmt.Println()
	}

	if len(r.Analysis.TopDishes) > 0 {
		fmt.Println("Top dishes:")
		for _, d := range r.Analysis.TopDishes {
			fmt.Printf("  - %s", d.Name)
			if d.RecommendedWith != "" {
				fmt.Printf(" (goes well with %s)", d.RecommendedWith)
			}
			fmt.Println()
			for _, p := range d.KeyPoints {
				fmt.Printf("      %s\n", p)
			}
		}
		fmt.Println()
	}

	if r.Analysis.Summary != "" {
		fmt.Println(r.Analysis.Summary)
	}
}
