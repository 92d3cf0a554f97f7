package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// exportStamp prefixes every export filename
const exportStamp = "2006-01-02_15-04-05"

// ExportInfo is a saved preset file (for listing)
type ExportInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// ExportDir returns ~/.config/go-rhythm/presets
func ExportDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-rhythm", "presets"), nil
}

// SaveExport writes p to dir as 2006-01-02_15-04-05_<id>.yaml and returns
// the path. The file is a valid presets list for a catalog.
func SaveExport(dir string, p Preset, now time.Time) (string, error) {
	data, err := p.Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create export dir")
	}

	name := now.Format(exportStamp)
	if p.ID != "" {
		name += "_" + p.ID
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "write export %s", path)
	}
	return path, nil
}

// ListExports returns the timestamped exports in dir, newest first
func ListExports(dir string) ([]ExportInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ExportInfo{}, nil
		}
		return nil, err
	}

	var out []ExportInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".yaml")
		if len(base) < len(exportStamp) {
			continue
		}
		ts, err := time.Parse(exportStamp, base[:len(exportStamp)])
		if err != nil {
			// Not a timestamped file, skip
			continue
		}

		name := ""
		if len(base) > len(exportStamp)+1 && base[len(exportStamp)] == '_' {
			name = base[len(exportStamp)+1:]
		}
		out = append(out, ExportInfo{Filename: entry.Name(), Name: name, Timestamp: ts})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
