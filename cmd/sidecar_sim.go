package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/visionauth/internal/adapters/landmark"
	"github.com/okian/visionauth/pkg/logger"
	"github.com/spf13/cobra"
)

type sidecarSimOptions struct {
	addr      string
	dropEvery int
	latency   time.Duration
}

func newSidecarSimCmd(c *cli) *cobra.Command {
	o := sidecarSimOptions{}
	cmd := &cobra.Command{
		Use:   "sidecar-sim",
		Short: "Serve a stand-in landmark sidecar that answers with a generated face",
		Long: "Listens on the host and path of sidecar_url and speaks the sidecar " +
			"protocol, so the sidecar source can be exercised without a detector.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sidecarSim(cmd.Context(), c, o)
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "listen address (default: host of sidecar_url)")
	cmd.Flags().IntVar(&o.dropEvery, "drop-every", 0, "answer every nth frame with no face")
	cmd.Flags().DurationVar(&o.latency, "latency", 0, "simulated inference latency per frame")
	return cmd
}

func sidecarSim(ctx context.Context, c *cli, o sidecarSimOptions) error {
	log := logger.Get()

	u, err := url.Parse(c.cfg.SidecarURL)
	if err != nil {
		return fmt.Errorf("parse sidecar_url: %w", err)
	}
	addr := o.addr
	if addr == "" {
		addr = u.Host
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	sim := landmark.NewSimulator(
		landmark.WithSimulatedDropEvery(o.dropEvery),
		landmark.WithLatency(o.latency),
		landmark.WithSimulatorLogger(log.Named("sidecar_sim")),
	)
	mux := http.NewServeMux()
	mux.Handle(path, sim)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting sidecar simulator", logger.String("addr", addr), logger.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sidecar simulator failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "sidecar simulator shutdown failed", logger.Error(err))
	}
	return nil
}
