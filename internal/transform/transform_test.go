package transform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matjam/slideframe/internal/types"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func TestFit_CoverCropsToExactGeometry(t *testing.T) {
	// Red stripes on the outer 200px of each side; cover must crop them away.
	src := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	draw.Draw(src, src.Bounds(), &image.Uniform{blue}, image.Point{}, draw.Src)
	draw.Draw(src, image.Rect(0, 0, 200, 2000), &image.Uniform{red}, image.Point{}, draw.Src)
	draw.Draw(src, image.Rect(3800, 0, 4000, 2000), &image.Uniform{red}, image.Point{}, draw.Src)

	g := types.Geometry{Width: 1920, Height: 1080}
	out, err := Fit(src, g, types.FitCover)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if out.Bounds().Dx() != 1920 || out.Bounds().Dy() != 1080 {
		t.Fatalf("expected 1920x1080, got %v", out.Bounds())
	}

	for _, x := range []int{0, 960, 1919} {
		c := out.RGBAAt(x, 540)
		if c.R > 10 || c.B < 245 {
			t.Errorf("pixel (%d,540) = %v, expected blue (edges cropped, no letterbox)", x, c)
		}
	}
}

func TestFit_CoverTallSource(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 900))
	out, err := Fit(src, types.Geometry{Width: 160, Height: 90}, types.FitCover)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if out.Bounds().Dx() != 160 || out.Bounds().Dy() != 90 {
		t.Fatalf("expected 160x90, got %v", out.Bounds())
	}
}

func TestFit_Contain(t *testing.T) {
	g := types.Geometry{Width: 1920, Height: 1080}

	tests := []struct {
		name         string
		srcW, srcH   int
		wantW, wantH int
	}{
		{"wide downscale", 4000, 2000, 1920, 960},
		{"tall downscale", 1000, 2000, 540, 1080},
		{"smaller stays", 100, 50, 100, 50},
		{"exact", 1920, 1080, 1920, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Fit(image.NewRGBA(image.Rect(0, 0, tt.srcW, tt.srcH)), g, types.FitContain)
			if err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %v", tt.wantW, tt.wantH, out.Bounds())
			}
		})
	}
}

func TestFit_FillIgnoresAspect(t *testing.T) {
	out, err := Fit(image.NewRGBA(image.Rect(0, 0, 300, 100)), types.Geometry{Width: 64, Height: 48}, types.FitFill)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 48 {
		t.Errorf("expected 64x48, got %v", out.Bounds())
	}
}

func TestFit_InvalidDimensions(t *testing.T) {
	if _, err := Fit(image.NewRGBA(image.Rect(0, 0, 0, 10)), types.DefaultGeometry, types.FitFill); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions for empty source, got %v", err)
	}
	if _, err := Fit(image.NewRGBA(image.Rect(0, 0, 10, 10)), types.Geometry{}, types.FitFill); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions for empty target, got %v", err)
	}
	if _, err := Fit(image.NewRGBA(image.Rect(0, 0, 10, 10)), types.DefaultGeometry, "stretched"); !errors.Is(err, ErrUnknownFitMode) {
		t.Errorf("expected ErrUnknownFitMode, got %v", err)
	}
}

func TestTransform_Deterministic(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, filepath.Join(dir, "in.png"), gradient(320, 200))
	tr := New(filepath.Join(dir, "staging"), 95)
	g := types.Geometry{Width: 160, Height: 90}

	first, err := tr.Transform(src, g, types.FitCover, true)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	firstBytes := readFile(t, first.Path)

	second, err := tr.Transform(src, g, types.FitCover, true)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if first.Path != second.Path {
		t.Fatalf("expected stable artifact path, got %q and %q", first.Path, second.Path)
	}
	if !bytes.Equal(firstBytes, readFile(t, second.Path)) {
		t.Error("expected identical output for identical input")
	}
	if first.Size != int64(len(firstBytes)) {
		t.Errorf("artifact size %d does not match file size %d", first.Size, len(firstBytes))
	}

	out, err := jpeg.Decode(bytes.NewReader(firstBytes))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if out.Bounds().Dx() != 160 || out.Bounds().Dy() != 90 {
		t.Errorf("expected 160x90, got %v", out.Bounds())
	}
}

func TestTransform_CorruptSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(path, []byte("definitely not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(dir, 0).Transform(types.SourceImage{Path: path}, types.DefaultGeometry, types.FitContain, true)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestTransform_MissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, 0).Transform(types.SourceImage{Path: filepath.Join(dir, "gone.jpg")}, types.DefaultGeometry, types.FitContain, true)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestTransform_AutoOrient(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(40, 20), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	// Orientation 6: stored sideways, must be rotated 90° clockwise to view.
	path := filepath.Join(dir, "rotated.jpg")
	if err := os.WriteFile(path, withEXIFOrientation(buf.Bytes(), 6), 0o644); err != nil {
		t.Fatal(err)
	}
	src := types.SourceImage{Path: path, ModTime: time.Unix(1700000000, 0)}
	tr := New(filepath.Join(dir, "staging"), 95)

	oriented, err := tr.Transform(src, types.DefaultGeometry, types.FitContain, true)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if b := decodeBounds(t, oriented.Path); b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("expected upright 20x40, got %v", b)
	}

	raw, err := tr.Transform(src, types.DefaultGeometry, types.FitContain, false)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if b := decodeBounds(t, raw.Path); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("expected stored 40x20 without auto orient, got %v", b)
	}
	if raw.Path == oriented.Path {
		t.Error("expected different artifacts for different orientation settings")
	}
}

func TestArtifactName_ChangesWithSourceVersion(t *testing.T) {
	src := types.SourceImage{Path: "/pics/a.jpg", ModTime: time.Unix(100, 0)}
	newer := src
	newer.ModTime = time.Unix(200, 0)

	a := ArtifactName(src, types.DefaultGeometry, types.FitContain, true)
	if a != ArtifactName(src, types.DefaultGeometry, types.FitContain, true) {
		t.Error("expected stable name")
	}
	if a == ArtifactName(newer, types.DefaultGeometry, types.FitContain, true) {
		t.Error("expected a new name for a modified source")
	}
	if a == ArtifactName(src, types.DefaultGeometry, types.FitCover, true) {
		t.Error("expected a new name for a different fit mode")
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) types.SourceImage {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	return types.SourceImage{Path: path, ModTime: info.ModTime(), Size: info.Size(), Ext: ".png"}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func decodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(readFile(t, path)))
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img.Bounds()
}

// withEXIFOrientation inserts a minimal APP1 Exif segment carrying only the
// orientation tag right after the JPEG SOI marker.
func withEXIFOrientation(jpg []byte, orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(0x002a))
	binary.Write(&tiff, binary.BigEndian, uint32(8))      // IFD0 offset
	binary.Write(&tiff, binary.BigEndian, uint16(1))      // one entry
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) // Orientation
	binary.Write(&tiff, binary.BigEndian, uint16(3))      // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))      // count
	binary.Write(&tiff, binary.BigEndian, orientation)    // value
	binary.Write(&tiff, binary.BigEndian, uint16(0))      // padding
	binary.Write(&tiff, binary.BigEndian, uint32(0))      // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xff, 0xe1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}
