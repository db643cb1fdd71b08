package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Scene struct {
	Index   int
	Page    int
	Payload []byte
	Width   int
	Height  int
	Quality int
	Hash    string
}

type SceneDirectory struct {
	Name      string
	SessionID SessionID
	Document  string
	Scenes    []Scene
	CreatedAt time.Time
}

func (d SceneDirectory) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("scene directory name is required")
	}
	if strings.ContainsAny(d.Name, "/\\") {
		return fmt.Errorf("scene directory name %q must not contain path separators", d.Name)
	}
	if d.Name == "." || d.Name == ".." {
		return fmt.Errorf("scene directory name %q is reserved", d.Name)
	}
	return nil
}

// Pages returns the logical page numbers in scene order.
func (d SceneDirectory) Pages() []int {
	pages := make([]int, 0, len(d.Scenes))
	for _, scene := range d.Scenes {
		pages = append(pages, scene.Page)
	}
	return pages
}

func (d SceneDirectory) Path(index int) (ScenePath, error) {
	if index < 0 || index >= len(d.Scenes) {
		return ScenePath{}, fmt.Errorf("%w: %d not in [0,%d)", ErrSceneOutOfRange, index, len(d.Scenes))
	}
	return ScenePath{Directory: d.Name, Index: index}, nil
}

func (d SceneDirectory) First() (ScenePath, bool) {
	if len(d.Scenes) == 0 {
		return ScenePath{}, false
	}
	return ScenePath{Directory: d.Name, Index: 0}, true
}

// ScenePath addresses exactly one scene in one directory.
type ScenePath struct {
	Directory string `json:"directory"`
	Index     int    `json:"index"`
}

func (p ScenePath) IsZero() bool {
	return p.Directory == ""
}

func (p ScenePath) String() string {
	if p.IsZero() {
		return ""
	}
	return "/" + p.Directory + "/" + strconv.Itoa(p.Index)
}

func ParseScenePath(raw string) (ScenePath, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ScenePath{}, nil
	}

	parts := strings.Split(strings.TrimPrefix(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		return ScenePath{}, fmt.Errorf("invalid scene path %q", raw)
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return ScenePath{}, fmt.Errorf("invalid scene index in path %q", raw)
	}

	return ScenePath{Directory: parts[0], Index: index}, nil
}
