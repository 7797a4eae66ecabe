package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahmad-alkadri/luna-converter/internal/config"
	"github.com/ahmad-alkadri/luna-converter/internal/handlers"
	"github.com/ahmad-alkadri/luna-converter/internal/logger"
	"github.com/ahmad-alkadri/luna-converter/internal/metrics"
	"github.com/ahmad-alkadri/luna-converter/internal/server"
	"github.com/ahmad-alkadri/luna-converter/internal/services"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "luna-converter",
		Short:        "Session based image conversion service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCMD())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var port string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (yaml, json or toml)")
	serve.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides server.port")

	return serve
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().
		Str("port", cfg.Server.Port).
		Str("format", cfg.Conversion.Format).
		Int("max_files", cfg.Upload.MaxFiles).
		Str("max_file_size", humanize.IBytes(uint64(cfg.Upload.MaxFileBytes))).
		Dur("session_ttl", cfg.Session.TTL).
		Bool("minio", cfg.Minio.Enabled).
		Msg("Starting luna-converter")

	m := metrics.NewMetrics()

	// Create all service dependencies
	store := services.NewMemorySessionStore(services.NewUUIDGenerator(), cfg.Upload.MaxFiles)
	m.TrackSessions(store.Len)

	codec, err := services.NewImageCodec(cfg.Conversion.Format, cfg.Conversion.Quality)
	if err != nil {
		return err
	}
	converter := services.NewBatchConverter(store, codec, cfg.Conversion.Workers, m)

	var archives services.ArchiveStore
	if cfg.Minio.Enabled {
		minioService, err := services.NewMinioService(ctx, cfg.Minio, log)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO service: %w", err)
		}
		archives = minioService
		log.Info().Str("endpoint", cfg.Minio.Endpoint).Str("bucket", cfg.Minio.Bucket).Msg("MinIO archive store enabled")
	}

	conversionService := services.NewConversionService(
		store,
		converter,
		services.NewDeflateZipService(flate.BestSpeed),
		archives,
		m,
		log,
	)

	sweeper := services.NewSessionSweeper(store, cfg.Session.TTL, cfg.Session.SweepSchedule, m, log)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	httpHandler := handlers.NewHTTPHandler(
		conversionService,
		services.NewMultipartProcessor(cfg.Upload.MaxFiles, cfg.Upload.MaxFileBytes),
		handlers.NewDefaultResponseFormatter(),
		log,
	)

	srv := server.New(cfg.Server, cfg.Upload, httpHandler, m.Handler(), log)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
