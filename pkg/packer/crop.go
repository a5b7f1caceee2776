package packer

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// CropTo scales img so its shorter side equals size and cuts the centered
// size x size square out of it. With flip the result is mirrored
// horizontally.
func CropTo(img image.Image, size int, flip bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := float64(size) / float64(min(w, h))
	scaledW := int(math.Ceil(float64(w) * scale))
	scaledH := int(math.Ceil(float64(h) * scale))

	scaled := resize.Resize(uint(scaledW), uint(scaledH), img, resize.Bilinear)

	// offsets truncate toward zero
	dx := (scaledW - size) / 2
	dy := (scaledH - size) / 2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	origin := scaled.Bounds().Min.Add(image.Pt(dx, dy))
	draw.Draw(dst, dst.Bounds(), scaled, origin, draw.Src)

	if flip {
		mirror(dst)
	}
	return dst
}

func mirror(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for l, r := b.Min.X, b.Max.X-1; l < r; l, r = l+1, r-1 {
			cl, cr := img.RGBAAt(l, y), img.RGBAAt(r, y)
			img.SetRGBA(l, y, cr)
			img.SetRGBA(r, y, cl)
		}
	}
}
