package transform

import (
	"image"

	"github.com/matjam/slideframe/internal/types"
	"golang.org/x/image/draw"
)

// Fit maps img onto g according to mode.
//
//   - contain: shrink to fit inside g keeping the aspect ratio, never enlarge.
//   - cover: crop to the aspect ratio of g around the centre, then scale to
//     exactly g.
//   - fill: scale both axes independently to exactly g.
func Fit(img image.Image, g types.Geometry, mode types.FitMode) (*image.RGBA, error) {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 || !g.Valid() {
		return nil, ErrInvalidDimensions
	}

	srcRect := b
	dstW, dstH := g.Width, g.Height

	switch mode {
	case types.FitFill:
	case types.FitCover:
		srcRect = coverCrop(b, g)
	case types.FitContain:
		dstW, dstH = containSize(srcW, srcH, g)
	default:
		return nil, ErrUnknownFitMode
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	if srcRect.Dx() == dstW && srcRect.Dy() == dstH {
		draw.Draw(dst, dst.Bounds(), img, srcRect.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, srcRect, draw.Src, nil)
	return dst, nil
}

// coverCrop returns the largest centred rectangle of b with the aspect ratio
// of g.
func coverCrop(b image.Rectangle, g types.Geometry) image.Rectangle {
	srcW, srcH := b.Dx(), b.Dy()

	switch {
	case srcW*g.Height > srcH*g.Width:
		// wider than the screen: trim left and right
		w := roundDiv(srcH*g.Width, g.Height)
		w = clamp(w, 1, srcW)
		x0 := b.Min.X + (srcW-w)/2
		return image.Rect(x0, b.Min.Y, x0+w, b.Max.Y)
	case srcW*g.Height < srcH*g.Width:
		// taller than the screen: trim top and bottom
		h := roundDiv(srcW*g.Height, g.Width)
		h = clamp(h, 1, srcH)
		y0 := b.Min.Y + (srcH-h)/2
		return image.Rect(b.Min.X, y0, b.Max.X, y0+h)
	default:
		return b
	}
}

func containSize(srcW, srcH int, g types.Geometry) (int, int) {
	if srcW <= g.Width && srcH <= g.Height {
		return srcW, srcH
	}
	if srcW*g.Height >= srcH*g.Width {
		return g.Width, clamp(roundDiv(srcH*g.Width, srcW), 1, g.Height)
	}
	return clamp(roundDiv(srcW*g.Height, srcH), 1, g.Width), g.Height
}

func roundDiv(a, b int) int {
	return (a + b/2) / b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
