package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bnema/classroom/internal/adapters/document/imagepack"
	statusadapter "github.com/bnema/classroom/internal/adapters/render/status"
	tomlrepo "github.com/bnema/classroom/internal/adapters/repo/toml"
	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/spf13/viper"
)

// defaultViewport is the surface size of simulated participants.
var defaultViewport = domain.Size{Width: 1280, Height: 720}

type app struct {
	config         *viper.Viper
	policy         application.Policy
	logger         *slog.Logger
	scenes         ports.SceneStore
	documents      ports.DocumentSource
	statusRenderer func([]application.ParticipantStatus, statusadapter.RenderOptions) (string, error)
	clock          ports.Clock
	viewport       domain.Size
}

func wireApp() (*app, error) {
	cfg := viper.New()
	configure(cfg)

	// The scene repository reads config.toml, so every later lookup sees
	// file values too.
	scenes, err := tomlrepo.NewSceneRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire scene repository: %w", err)
	}

	policy, err := policyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	return &app{
		config:         cfg,
		policy:         policy,
		logger:         logger,
		scenes:         scenes,
		documents:      imagepack.NewSource(logger),
		statusRenderer: statusadapter.Render,
		clock:          ports.SystemClock{},
		viewport:       defaultViewport,
	}, nil
}
