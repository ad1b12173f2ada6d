package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/config"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/handler"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/jobstore"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/media"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/server"
	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/service/generation"
	"github.com/Sumner-Digital/coloringpage-fun/internal/veo"
)

type App struct {
	server *server.Server
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Video generation backend. The gateway still starts without a key so
	// /api/get-key can report the missing credential.
	var gen generation.Generator = veo.Unconfigured{}
	if cfg.APIKey != "" {
		client, err := veo.NewClient(context.Background(), cfg.APIKey, cfg.Veo.Model, cfg.Veo.PollInterval)
		if err != nil {
			log.Printf("veo client unavailable: %v", err)
		} else {
			gen = client
		}
	} else {
		log.Printf("no API key configured; video generation is disabled")
	}

	mediaStore, err := newMediaStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init media store: %w", err)
	}

	jobs := jobstore.NewFromEnv(cfg.JobStore.Path)
	generationSvc := generation.New(jobs, mediaStore, gen, cfg.Veo.Timeout)

	keyHandler := handler.NewKeyHandler(cfg.APIKey)
	generationHandler := handler.NewGenerationHandler(generationSvc)
	progressHandler := handler.NewProgressHandler(generationSvc)

	mux := server.NewMux(keyHandler, generationHandler, progressHandler, cfg.AssetsDir)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
	}, nil
}

func newMediaStore(cfg *config.Config) (media.Store, error) {
	if cfg.Media.Enabled {
		return media.NewS3Store(media.S3Config{
			Endpoint:  cfg.Media.Endpoint,
			Region:    cfg.Media.Region,
			AccessKey: cfg.Media.AccessKey,
			SecretKey: cfg.Media.SecretKey,
			Bucket:    cfg.Media.Bucket,
			UseSSL:    cfg.Media.UseSSL,
		})
	}
	return media.NewFileStore(filepath.Join("tmp", "media"))
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
