package manifest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

/*
Manifest

An ordered list of origin-absolute asset paths that are pre-populated into one
cache partition at install. Manifests are enumerated at deploy time and never
discovered at runtime.
*/
type Manifest struct {
	partition string
	paths     []string
}

func New(partition string, paths []string) Manifest {
	copied := make([]string, len(paths))
	copy(copied, paths)
	return Manifest{
		partition: partition,
		paths:     copied,
	}
}

func (m Manifest) Partition() string {
	return m.partition
}

func (m Manifest) Paths() []string {
	paths := make([]string, len(m.paths))
	copy(paths, m.paths)
	return paths
}

func (m Manifest) Len() int {
	return len(m.paths)
}

// Validate rejects entries that cannot be bulk-added: relative paths, paths
// that do not parse as URL references, and duplicates.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.partition) == "" {
		return fmt.Errorf("%w: partition name is empty", ErrInvalidManifest)
	}
	seen := make(map[string]struct{}, len(m.paths))
	for i, p := range m.paths {
		if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
			return fmt.Errorf("%w: entry %d (%q) is not an absolute path", ErrInvalidManifest, i, p)
		}
		ref, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("%w: entry %d (%q): %v", ErrInvalidManifest, i, p, err)
		}
		if ref.Fragment != "" {
			return fmt.Errorf("%w: entry %d (%q) contains an unencoded '#'", ErrInvalidManifest, i, p)
		}
		key := ref.String()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate entry %q in %s", ErrInvalidManifest, p, m.partition)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ParseVersion splits a partition name following the "<purpose>-v<N>" convention.
func ParseVersion(name string) (string, int, error) {
	idx := strings.LastIndex(name, "-v")
	if idx <= 0 || idx+2 >= len(name) {
		return "", 0, fmt.Errorf("%w: %q does not follow <purpose>-v<N>", ErrInvalidPartitionName, name)
	}
	version, err := strconv.Atoi(name[idx+2:])
	if err != nil || version < 0 {
		return "", 0, fmt.Errorf("%w: %q has a non-numeric version", ErrInvalidPartitionName, name)
	}
	return name[:idx], version, nil
}

// BumpVersion returns the partition name with its version incremented.
// Bumping is the only supported way to invalidate a partition.
func BumpVersion(name string) (string, error) {
	purpose, version, err := ParseVersion(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-v%d", purpose, version+1), nil
}
