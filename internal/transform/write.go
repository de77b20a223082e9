package transform

import (
	"bufio"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// writeJPEGAtomic encodes img next to path and renames it into place so a
// viewer never sees a half-written file.
func writeJPEGAtomic(path string, img image.Image, quality int) (int64, error) {
	dir, name := filepath.Split(path)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	w := bufio.NewWriter(tmp)
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}

	info, err := tmp.Stat()
	if err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
