package application

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/zeebo/blake3"
)

const maxDirectoryNameAttempts = 3

type IngestionProgress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Failed    int `json:"failed,omitempty"`
}

func (p IngestionProgress) String() string {
	return fmt.Sprintf("%d/%d", p.Processed, p.Total)
}

type PageFailure struct {
	Page int
	Err  error
}

type IngestionResult struct {
	Directory domain.SceneDirectory
	Failures  []PageFailure
	Camera    domain.Camera
}

// IngestionPipeline turns a paginated document into a scene directory, one
// page at a time, and points the session at its first scene.
type IngestionPipeline struct {
	documents ports.DocumentSource
	scenes    ports.SceneStore
	clock     ports.Clock
	policy    IngestPolicy
	fit       domain.FitMargins
	logger    *slog.Logger
}

func NewIngestionPipeline(documents ports.DocumentSource, scenes ports.SceneStore, clock ports.Clock, policy Policy, logger *slog.Logger) *IngestionPipeline {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &IngestionPipeline{
		documents: documents,
		scenes:    scenes,
		clock:     clock,
		policy:    policy.Ingest,
		fit:       policy.Fit,
		logger:    loggerOrDefault(logger).With("component", "ingestion"),
	}
}

// Ingest converts documentURL for the engine's session. Pages are processed
// strictly in order; a failing page is logged and skipped. Cancellation is
// honored between pages.
func (p *IngestionPipeline) Ingest(ctx context.Context, engine *ViewSyncEngine, documentURL string, progress func(IngestionProgress)) (IngestionResult, error) {
	handle := engine.Handle()
	if handle.Authority() != domain.AuthorityBroadcaster {
		return IngestionResult{}, fmt.Errorf("ingest document: %w", domain.ErrNotBroadcaster)
	}

	doc, err := p.documents.Open(ctx, documentURL)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("open document %s: %w", documentURL, err)
	}
	defer func() { _ = doc.Close() }()

	total := doc.PageCount()
	if total <= 0 {
		return IngestionResult{}, fmt.Errorf("ingest document %s: no pages: %w", documentURL, domain.ErrIngestionPageFailure)
	}

	dir, err := p.createDirectory(ctx, handle.SessionID, documentURL)
	if err != nil {
		return IngestionResult{}, err
	}

	logger := p.logger.With("session", handle.SessionID, "directory", dir.Name)
	logger.Info("ingestion started", "document", documentURL, "pages", total)

	result := IngestionResult{Directory: dir}
	tally := IngestionProgress{Total: total}
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ingest document %s at page %d: %w", documentURL, page, err)
		}

		scene, err := p.renderScene(ctx, doc, page, len(result.Directory.Scenes))
		if err == nil {
			err = p.scenes.AppendScene(ctx, dir.Name, scene)
		}
		if err != nil {
			pageErr := fmt.Errorf("page %d: %w", page, errors.Join(domain.ErrIngestionPageFailure, err))
			result.Failures = append(result.Failures, PageFailure{Page: page, Err: pageErr})
			tally.Failed++
			logger.Warn("page skipped", "page", page, "error", err)
		} else {
			result.Directory.Scenes = append(result.Directory.Scenes, scene)
		}

		tally.Processed++
		if progress != nil {
			progress(tally)
		}
	}

	first, ok := result.Directory.First()
	if !ok {
		failures := make([]error, 0, len(result.Failures))
		for _, failure := range result.Failures {
			failures = append(failures, failure.Err)
		}
		return result, fmt.Errorf("ingest document %s: every page failed: %w", documentURL, errors.Join(failures...))
	}

	if err := engine.ChangeScene(ctx, first); err != nil {
		return result, fmt.Errorf("switch to ingested scene: %w", err)
	}

	camera := p.fitCamera(doc, result.Directory.Scenes[0], handle.Surface.Viewport())
	if result.Camera, err = engine.MoveCamera(ctx, camera); err != nil {
		return result, fmt.Errorf("fit camera to scene: %w", err)
	}

	logger.Info("ingestion finished", "scenes", len(result.Directory.Scenes), "failed", len(result.Failures), "scale", result.Camera.Scale)
	return result, nil
}

func (p *IngestionPipeline) createDirectory(ctx context.Context, sessionID domain.SessionID, documentURL string) (domain.SceneDirectory, error) {
	digest := blake3.Sum256([]byte(documentURL))
	prefix := hex.EncodeToString(digest[:4])

	var lastErr error
	for attempt := 0; attempt < maxDirectoryNameAttempts; attempt++ {
		now := p.clock.Now()
		dir := domain.SceneDirectory{
			Name:      fmt.Sprintf("%s-%s-%d", sessionID, prefix, now.UnixNano()+int64(attempt)),
			SessionID: sessionID,
			Document:  documentURL,
			CreatedAt: now,
		}

		err := p.scenes.CreateDirectory(ctx, dir)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, domain.ErrSceneDirectoryExists) {
			return domain.SceneDirectory{}, fmt.Errorf("create scene directory: %w", err)
		}
		lastErr = err
	}

	return domain.SceneDirectory{}, fmt.Errorf("create scene directory: %w", lastErr)
}

func (p *IngestionPipeline) renderScene(ctx context.Context, doc ports.Document, page int, index int) (domain.Scene, error) {
	img, err := doc.RenderPage(ctx, page, p.policy.RenderScale)
	if err != nil {
		return domain.Scene{}, fmt.Errorf("render: %w", err)
	}

	payload, quality, err := p.encode(img)
	if err != nil {
		return domain.Scene{}, err
	}

	digest := blake3.Sum256(payload)
	bounds := img.Bounds()
	return domain.Scene{
		Index:   index,
		Page:    page,
		Payload: payload,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Quality: quality,
		Hash:    hex.EncodeToString(digest[:]),
	}, nil
}

// encode steps JPEG quality down until the payload fits the transport limit.
func (p *IngestionPipeline) encode(img image.Image) ([]byte, int, error) {
	var buf bytes.Buffer
	quality := p.policy.InitialQuality
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, 0, fmt.Errorf("encode: %w", err)
		}
		if buf.Len() <= p.policy.MaxPayloadBytes {
			return bytes.Clone(buf.Bytes()), quality, nil
		}
		if quality <= p.policy.MinQuality {
			return nil, 0, fmt.Errorf("%w: %d bytes at quality %d, limit %d", domain.ErrPayloadTooLarge, buf.Len(), quality, p.policy.MaxPayloadBytes)
		}
		quality = max(quality-p.policy.QualityStep, p.policy.MinQuality)
	}
}

// fitCamera scales the first scene's page to the viewport. The page's native
// size is preferred; the raster size is used when the document cannot tell.
func (p *IngestionPipeline) fitCamera(doc ports.Document, scene domain.Scene, viewport domain.Size) domain.Camera {
	size, err := doc.PageSize(scene.Page)
	if err != nil || !size.Valid() {
		size = domain.Size{
			Width:  float64(scene.Width) / p.policy.RenderScale,
			Height: float64(scene.Height) / p.policy.RenderScale,
		}
	}

	return domain.Camera{X: 0, Y: 0, Scale: domain.FitScale(size, viewport, p.fit)}
}
