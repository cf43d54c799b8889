package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned for scene files of an unknown version.
var ErrUnsupportedVersion = errors.New("unsupported scene version")

// LoadScene reads and validates one scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scene YAML.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scene YAML: %w", err)
	}
	if s.Version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scene) validate() error {
	if !validName(s.Location) {
		return fmt.Errorf("invalid scene location %q", s.Location)
	}
	if !validName(s.ID) {
		return fmt.Errorf("invalid scene id %q", s.ID)
	}
	seen := make(map[int]struct{}, len(s.Objects))
	for _, d := range s.Objects {
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("scene %s/%s: duplicate object id %d", s.Location, s.ID, d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Type == "" {
			return fmt.Errorf("scene %s/%s: object %d has no type", s.Location, s.ID, d.ID)
		}
	}
	return nil
}

// Location and scene ids end up in override commands, so no whitespace.
func validName(s string) bool {
	return s != "" && strings.IndexFunc(s, unicode.IsSpace) < 0
}

// Dir is a scene directory laid out as <root>/<location>/<scene>.yaml.
type Dir struct {
	Root string
}

// Path returns the file of one scene.
func (d Dir) Path(location, id string) string {
	return filepath.Join(d.Root, location, id+".yaml")
}

// Load reads one scene and checks it matches its path.
func (d Dir) Load(location, id string) (*Scene, error) {
	s, err := LoadScene(d.Path(location, id))
	if err != nil {
		return nil, err
	}
	if s.Location != location || s.ID != id {
		return nil, fmt.Errorf("scene file %s declares %s/%s", d.Path(location, id), s.Location, s.ID)
	}
	return s, nil
}

// Identify maps a file path under Root back to its location and scene id.
func (d Dir) Identify(path string) (location, id string, ok bool) {
	rel, err := filepath.Rel(d.Root, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || !isSceneFile(parts[1]) {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], filepath.Ext(parts[1])), true
}

// Locations lists the location directories under Root.
func (d Dir) Locations() ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(d.Root, e.Name()))
		}
	}
	return out, nil
}
