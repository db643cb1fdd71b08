package toml

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

const (
	configName    = "config"
	configType    = "toml"
	scenesPathKey = "scenes.path"
	scenesConfig  = ".classroom"
	scenesDirName = "scenes"
	manifestFile  = "manifest.toml"
	sceneFileExt  = ".jpg"
)

// SceneRepository stores each scene directory as a folder holding a TOML
// manifest and one raster file per scene.
type SceneRepository struct {
	root string
	mu   *sync.RWMutex
}

var _ ports.SceneStore = (*SceneRepository)(nil)

func NewSceneRepository(cfg *viper.Viper) (*SceneRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, scenesConfig))
	cfg.SetDefault(scenesPathKey, filepath.Join(homeDir, scenesConfig, scenesDirName))

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	root := cfg.GetString(scenesPathKey)
	if root == "" {
		return nil, errors.New("scenes path is empty")
	}
	root, err = normalizePath(root)
	if err != nil {
		return nil, err
	}

	return &SceneRepository{root: root, mu: lockForPath(root)}, nil
}

func (r *SceneRepository) Root() string {
	return r.root
}

func (r *SceneRepository) CreateDirectory(ctx context.Context, dir domain.SceneDirectory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dir.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.root, scenesDirMode); err != nil {
		return fmt.Errorf("create scenes root: %w", err)
	}
	if err := os.Mkdir(r.dirPath(dir.Name), scenesDirMode); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", domain.ErrSceneDirectoryExists, dir.Name)
		}
		return fmt.Errorf("create scene directory: %w", err)
	}

	manifest := manifestSchema{
		Name:      dir.Name,
		SessionID: string(dir.SessionID),
		Document:  dir.Document,
		CreatedAt: formatTime(dir.CreatedAt),
		Scenes:    []sceneSchema{},
	}
	manifest.applyDefaults()

	if err := writeTOMLFile(r.manifestPath(dir.Name), manifest); err != nil {
		_ = os.RemoveAll(r.dirPath(dir.Name))
		return fmt.Errorf("write scene manifest: %w", err)
	}
	return nil
}

// AppendScene stores the raster then records it in the manifest. Indexes must
// stay contiguous.
func (r *SceneRepository) AppendScene(ctx context.Context, name string, scene domain.Scene) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	manifest, err := r.readManifest(name)
	if err != nil {
		return err
	}
	if scene.Index != len(manifest.Scenes) {
		return fmt.Errorf("append scene to %s: index %d, want %d", name, scene.Index, len(manifest.Scenes))
	}

	hash := scene.Hash
	if hash == "" {
		digest := blake3.Sum256(scene.Payload)
		hash = hex.EncodeToString(digest[:])
	}

	fileName := strconv.Itoa(scene.Index) + sceneFileExt
	if err := writeFileAtomic(filepath.Join(r.dirPath(name), fileName), scene.Payload); err != nil {
		return fmt.Errorf("write scene %d: %w", scene.Index, err)
	}

	manifest.Scenes = append(manifest.Scenes, sceneSchema{
		Index:   scene.Index,
		Page:    scene.Page,
		File:    fileName,
		Width:   scene.Width,
		Height:  scene.Height,
		Quality: scene.Quality,
		Hash:    hash,
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeTOMLFile(r.manifestPath(name), manifest); err != nil {
		return fmt.Errorf("write scene manifest: %w", err)
	}
	return nil
}

// GetDirectory loads a directory with its payloads and checks every payload
// against its recorded hash.
func (r *SceneRepository) GetDirectory(ctx context.Context, name string) (domain.SceneDirectory, error) {
	if err := ctx.Err(); err != nil {
		return domain.SceneDirectory{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	manifest, err := r.readManifest(name)
	if err != nil {
		return domain.SceneDirectory{}, err
	}

	dir := fromManifest(manifest)
	for i, entry := range manifest.Scenes {
		payload, err := os.ReadFile(filepath.Join(r.dirPath(name), entry.File))
		if err != nil {
			return domain.SceneDirectory{}, fmt.Errorf("read scene %d of %s: %w", entry.Index, name, err)
		}
		digest := blake3.Sum256(payload)
		if hex.EncodeToString(digest[:]) != entry.Hash {
			return domain.SceneDirectory{}, fmt.Errorf("scene %d of %s: payload hash mismatch", entry.Index, name)
		}
		dir.Scenes[i].Payload = payload
	}

	return dir, nil
}

// ListDirectories returns the directories of a session, oldest first, without
// payloads. An empty session ID lists every directory.
func (r *SceneRepository) ListDirectories(ctx context.Context, sessionID domain.SessionID) ([]domain.SceneDirectory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scenes root: %w", err)
	}

	dirs := make([]domain.SceneDirectory, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := r.readManifest(entry.Name())
		if err != nil {
			if errors.Is(err, domain.ErrSceneDirectoryNotFound) {
				continue
			}
			return nil, err
		}
		if sessionID != "" && manifest.SessionID != string(sessionID) {
			continue
		}
		dirs = append(dirs, fromManifest(manifest))
	}

	sort.Slice(dirs, func(i, j int) bool {
		if !dirs[i].CreatedAt.Equal(dirs[j].CreatedAt) {
			return dirs[i].CreatedAt.Before(dirs[j].CreatedAt)
		}
		return dirs[i].Name < dirs[j].Name
	})
	return dirs, nil
}

func (r *SceneRepository) readManifest(name string) (manifestSchema, error) {
	if err := (domain.SceneDirectory{Name: name}).Validate(); err != nil {
		return manifestSchema{}, err
	}

	data, err := os.ReadFile(r.manifestPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return manifestSchema{}, fmt.Errorf("%w: %s", domain.ErrSceneDirectoryNotFound, name)
		}
		return manifestSchema{}, fmt.Errorf("read scene manifest: %w", err)
	}

	var manifest manifestSchema
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return manifestSchema{}, fmt.Errorf("decode scene manifest %s: %w", name, err)
	}
	if err := manifest.validateVersion(); err != nil {
		return manifestSchema{}, err
	}
	manifest.applyDefaults()

	return manifest, nil
}

func (r *SceneRepository) dirPath(name string) string {
	return filepath.Join(r.root, name)
}

func (r *SceneRepository) manifestPath(name string) string {
	return filepath.Join(r.root, name, manifestFile)
}

func fromManifest(manifest manifestSchema) domain.SceneDirectory {
	scenes := make([]domain.Scene, 0, len(manifest.Scenes))
	for _, entry := range manifest.Scenes {
		scenes = append(scenes, domain.Scene{
			Index:   entry.Index,
			Page:    entry.Page,
			Width:   entry.Width,
			Height:  entry.Height,
			Quality: entry.Quality,
			Hash:    entry.Hash,
		})
	}

	return domain.SceneDirectory{
		Name:      manifest.Name,
		SessionID: domain.SessionID(manifest.SessionID),
		Document:  manifest.Document,
		CreatedAt: parseTime(manifest.CreatedAt),
		Scenes:    scenes,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
