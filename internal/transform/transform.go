package transform

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/matjam/slideframe/internal/types"
)

const DefaultQuality = 95

var (
	ErrDecode            = errors.New("transform: cannot decode image")
	ErrInvalidDimensions = errors.New("transform: invalid dimensions")
	ErrUnknownFitMode    = errors.New("transform: unknown fit mode")
)

// Transformer turns source images into screen-ready JPEG files under Dir. It
// keeps no state between calls.
type Transformer struct {
	Dir     string
	Quality int
}

func New(dir string, quality int) *Transformer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Transformer{Dir: dir, Quality: quality}
}

// Transform decodes src, optionally applies its EXIF orientation, fits it to g
// and writes the result. The returned artifact path is derived from the
// source identity and the transform parameters.
func (t *Transformer) Transform(src types.SourceImage, g types.Geometry, fit types.FitMode, autoOrient bool) (types.Artifact, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, err := imaging.Decode(bufio.NewReader(f), imaging.AutoOrientation(autoOrient))
	if err != nil {
		return types.Artifact{}, fmt.Errorf("%w: %s: %v", ErrDecode, src.Path, err)
	}

	fitted, err := Fit(img, g, fit)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("%s: %w", src.Path, err)
	}

	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return types.Artifact{}, fmt.Errorf("creating staging dir: %w", err)
	}

	path := filepath.Join(t.Dir, ArtifactName(src, g, fit, autoOrient))
	size, err := writeJPEGAtomic(path, fitted, t.Quality)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("writing %s: %w", path, err)
	}

	return types.Artifact{Path: path, Size: size}, nil
}

// ArtifactName is stable for the same source version and parameters and
// differs whenever either changes.
func ArtifactName(src types.SourceImage, g types.Geometry, fit types.FitMode, autoOrient bool) string {
	h := sha256.New()
	h.Write([]byte(src.Path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(src.ModTime.UnixNano(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(g.String()))
	h.Write([]byte{0})
	h.Write([]byte(fit))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(autoOrient)))
	return hex.EncodeToString(h.Sum(nil))[:24] + ".jpg"
}
