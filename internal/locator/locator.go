package locator

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/types"
)

// Scan returns the image files under dir whose extension is in extensions and
// whose size is at least minSize, sorted by path.
//
// A missing or unreadable dir yields an empty result. Files whose metadata
// can't be read are skipped.
func Scan(dir string, extensions []string, minSize int64, recursive bool) []types.SourceImage {
	dir = filepath.Clean(dir)
	allowed := extensionSet(extensions)

	if _, err := os.Stat(dir); err != nil {
		log.Warnf("Images directory unavailable: %v", err)
		return []types.SourceImage{}
	}

	images := make([]types.SourceImage, 0, 64)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			log.Debug("Skipping unreadable entry", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := allowed[ext]; !ok {
			return nil
		}

		// os.Stat follows symlinks, DirEntry.Info does not.
		info, err := os.Stat(path)
		if err != nil {
			log.Debug("Skipping file without metadata", "path", path, "err", err)
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() < minSize {
			return nil
		}

		images = append(images, types.SourceImage{
			Path:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
			Ext:     ext,
		})
		return nil
	})
	if err != nil {
		log.Warnf("Error scanning %s: %v", dir, err)
		return []types.SourceImage{}
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Path < images[j].Path })
	return images
}

func extensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
