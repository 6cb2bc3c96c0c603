package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/costsim/internal/book"
	"github.com/alanyoungcy/costsim/internal/capture"
	"github.com/alanyoungcy/costsim/internal/classifier"
	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/engine"
	"github.com/alanyoungcy/costsim/internal/feed"
	"github.com/alanyoungcy/costsim/internal/fees"
	"github.com/alanyoungcy/costsim/internal/impact"
	"github.com/alanyoungcy/costsim/internal/server"
	"github.com/alanyoungcy/costsim/internal/server/handler"
	"github.com/alanyoungcy/costsim/internal/server/ws"
	"github.com/alanyoungcy/costsim/internal/service"
	"github.com/alanyoungcy/costsim/internal/slippage"
	"github.com/alanyoungcy/costsim/internal/volatility"
)

// estimator bundles the book view and cost pipeline built from config.
type estimator struct {
	view *book.View
	pipe *engine.Pipeline
}

// buildEstimator constructs the full estimation pipeline: book view, rolling
// volatility window, slippage regressor, fee schedule, impact solver, and
// maker/taker classifier.
func (a *App) buildEstimator() (*estimator, error) {
	cfg := a.cfg

	view := book.NewView(cfg.Exchange.Instrument)
	vol := volatility.New(cfg.Volatility.WindowSize)
	slip := slippage.New(cfg.Slippage.Quantile, a.logger)

	var tiers []fees.Tier
	for _, t := range cfg.Fees.Tiers {
		tiers = append(tiers, fees.Tier{
			VolumeUSD: t.VolumeUSD,
			MakerRate: t.MakerRate,
			TakerRate: t.TakerRate,
		})
	}
	feeCalc := fees.New(tiers, cfg.Fees.MinimumFee)

	solver, err := impact.New(
		domain.ImpactParameters{
			Alpha:        cfg.Impact.Alpha,
			Beta:         cfg.Impact.Beta,
			Gamma:        cfg.Impact.Gamma,
			Eta:          cfg.Impact.Eta,
			RiskAversion: cfg.Impact.RiskAversion,
		},
		impact.Config{
			TimeSteps:    cfg.Impact.TimeSteps,
			TimeStepSize: cfg.Impact.TimeStepSize,
			UnitScale:    cfg.Impact.UnitScale,
			MaxInventory: cfg.Impact.MaxInventory,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}

	clf := classifier.New(classifierCoefficients(cfg.Classifier.Means, cfg.Classifier.Scales, cfg.Classifier.Weights, cfg.Classifier.Intercept), a.logger)

	pipe := engine.New(view, vol, slip, feeCalc, solver, clf, a.logger)
	return &estimator{view: view, pipe: pipe}, nil
}

// classifierCoefficients copies the config vectors into fixed-width arrays.
// Config validation guarantees each has exactly FeatureCount entries.
func classifierCoefficients(means, scales, weights []float64, intercept float64) classifier.Coefficients {
	var coef classifier.Coefficients
	for i := 0; i < classifier.FeatureCount; i++ {
		if i < len(means) {
			coef.Means[i] = means[i]
		}
		if i < len(scales) {
			coef.Scales[i] = scales[i]
		}
		if i < len(weights) {
			coef.Weights[i] = weights[i]
		}
	}
	coef.Intercept = intercept
	return coef
}

// EstimateMode runs the live feed, the book service, the cost pipeline, and
// the HTTP API.
func (a *App) EstimateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting estimate mode")

	g, ctx := errgroup.WithContext(ctx)

	est, err := a.buildEstimator()
	if err != nil {
		return fmt.Errorf("estimate mode: %w", err)
	}

	bookSvc := service.NewBookService(est.view, deps.BookCache, deps.SignalBus, a.logger)
	estSvc := service.NewEstimateService(est.pipe, deps.EstimateStore, deps.EstimateCache, deps.SignalBus, a.logger)

	wsFeed := feed.NewOKXFeed(
		a.cfg.Exchange.WsURL,
		a.cfg.Exchange.Instrument,
		[]string{a.cfg.Exchange.BookChannel},
		func(ctx context.Context, bids, asks []domain.RawLevel, ts time.Time) {
			_ = bookSvc.HandleBookUpdate(ctx, bids, asks, ts)
		},
		nil,
		a.logger,
	)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, bookSvc, estSvc)
	}

	return g.Wait()
}

// CaptureMode runs the feed and the training-data collector only. No HTTP
// API is served.
func (a *App) CaptureMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting capture mode")

	if !a.cfg.Capture.Enabled || deps.BlobWriter == nil {
		return fmt.Errorf("capture mode: capture.enabled must be true with S3 configured")
	}

	g, ctx := errgroup.WithContext(ctx)

	collector := a.buildCollector(deps)
	g.Go(func() error {
		return collector.Run(ctx)
	})

	wsFeed := feed.NewOKXFeed(
		a.cfg.Exchange.WsURL,
		a.cfg.Exchange.Instrument,
		[]string{a.cfg.Exchange.BookChannel, a.cfg.Exchange.TradeChannel},
		func(ctx context.Context, bids, asks []domain.RawLevel, ts time.Time) {
			_ = collector.HandleBook(ctx, bids, asks, ts)
		},
		func(ctx context.Context, tick domain.TradeTick) {
			_ = collector.HandleTrade(ctx, tick)
		},
		a.logger,
	)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})

	return g.Wait()
}

// FullMode runs every subsystem: feed, book service, cost pipeline, HTTP
// API, and (when enabled) the training-data collector.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	est, err := a.buildEstimator()
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	bookSvc := service.NewBookService(est.view, deps.BookCache, deps.SignalBus, a.logger)
	estSvc := service.NewEstimateService(est.pipe, deps.EstimateStore, deps.EstimateCache, deps.SignalBus, a.logger)

	var collector *capture.Collector
	channels := []string{a.cfg.Exchange.BookChannel}
	if a.cfg.Capture.Enabled && deps.BlobWriter != nil {
		collector = a.buildCollector(deps)
		channels = append(channels, a.cfg.Exchange.TradeChannel)
		g.Go(func() error {
			return collector.Run(ctx)
		})
	}

	onBook := func(ctx context.Context, bids, asks []domain.RawLevel, ts time.Time) {
		_ = bookSvc.HandleBookUpdate(ctx, bids, asks, ts)
		if collector != nil {
			_ = collector.HandleBook(ctx, bids, asks, ts)
		}
	}
	var onTrade feed.TradeSink
	if collector != nil {
		onTrade = func(ctx context.Context, tick domain.TradeTick) {
			_ = collector.HandleTrade(ctx, tick)
		}
	}

	wsFeed := feed.NewOKXFeed(
		a.cfg.Exchange.WsURL,
		a.cfg.Exchange.Instrument,
		channels,
		onBook,
		onTrade,
		a.logger,
	)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, bookSvc, estSvc)
	}

	return g.Wait()
}

// buildCollector constructs the training-data collector from config.
func (a *App) buildCollector(deps *Dependencies) *capture.Collector {
	return capture.New(capture.Config{
		Instrument:      a.cfg.Exchange.Instrument,
		TopLevels:       a.cfg.Capture.TopLevels,
		BatchSize:       a.cfg.Capture.BatchSize,
		FlushInterval:   a.cfg.Capture.FlushInterval.Duration,
		PathPrefix:      a.cfg.Capture.PathPrefix,
		SyntheticMakers: a.cfg.Capture.SyntheticMakers,
	}, deps.BlobWriter, a.logger)
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	bookSvc *service.BookService,
	estSvc *service.EstimateService,
) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:       a.cfg.Mode,
		Instrument: a.cfg.Exchange.Instrument,
		StartedAt:  startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(bookSvc, a.cfg.Mode, startedAt, a.logger),
			Book:     handler.NewBookHandler(bookSvc, a.logger),
			Estimate: handler.NewEstimateHandler(estSvc, a.cfg.Exchange.Instrument, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
