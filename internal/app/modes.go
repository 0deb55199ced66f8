package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nftmarket/internal/server"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/server/ws"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// ServeMode runs the HTTP + WebSocket API until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Marketplace: handler.NewMarketplaceHandler(deps.Engine, a.logger),
		Listings:    handler.NewListingHandler(deps.Engine, a.logger),
		Accounts:    handler.NewAccountHandler(deps.Engine, a.logger),
		Receipts:    handler.NewReceiptHandler(deps.Engine, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ArchiveMode uploads all receipts older than the retention cutoff to object
// storage as one JSONL batch, then exits. Intended to run from cron.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	cutoff := a.cfg.Archive.RetentionCutoff(time.Now().UTC())
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Time("cutoff", cutoff),
	)

	key, count, err := deps.Archiver.Archive(ctx, cutoff)
	if err != nil {
		return err
	}
	if count == 0 {
		a.logger.InfoContext(ctx, "archive complete, nothing to upload")
		return nil
	}

	a.logger.InfoContext(ctx, "archive complete",
		slog.String("key", key),
		slog.Int("receipts", count),
	)
	return nil
}
