package render

import (
	"image"
	"math"
)

// Fit returns the contain-fit size of a src box inside a dst box
func Fit(srcW, srcH, dstW, dstH int) (w, h float64) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	return float64(srcW) * scale, float64(srcH) * scale
}

// FitContain returns the centered pixel rectangle the scaled source occupies
func FitContain(srcW, srcH, dstW, dstH int) image.Rectangle {
	fw, fh := Fit(srcW, srcH, dstW, dstH)
	w := min(int(math.Round(fw)), dstW)
	h := min(int(math.Round(fh)), dstH)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
