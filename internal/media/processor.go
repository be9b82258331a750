// Package media resizes inbound photos and persists them with a
// primary/fallback store pair.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const jpegQuality = 80

// Recompress downscales the image so its longest side is at most maxDim
// and re-encodes it as JPEG to bound storage cost. On any decode or encode
// failure the original bytes are returned unchanged.
func Recompress(data []byte, maxDim int) []byte {
	if len(data) == 0 || maxDim <= 0 {
		return data
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	maxSide := w
	if h > maxSide {
		maxSide = h
	}

	out := src
	resized := false
	if maxSide > maxDim {
		scale := float64(maxDim) / float64(maxSide)
		nw := int(float64(w) * scale)
		nh := int(float64(h) * scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		out = dst
		resized = true
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data
	}
	// A downscaled image is always returned resized; the dimension bound
	// matters more than the byte count. The size check only applies when
	// re-encoding an image that was already within bounds.
	if !resized && buf.Len() >= len(data) {
		return data
	}
	return buf.Bytes()
}
