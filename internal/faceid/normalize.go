package faceid

import (
	"image"

	"golang.org/x/image/draw"
)

// FaceSize is the canonical square resolution every face region is
// scaled to before training or classification. Training and the live
// session must agree on this; a mismatch degrades accuracy silently
// instead of erroring.
const FaceSize = 200

// ToGray converts a decoded frame to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Normalize crops a detected face region out of a grayscale frame and
// scales it to the canonical FaceSize square. The region is clamped to
// the frame bounds first; a region fully outside the frame yields an
// all-black patch rather than a panic.
func Normalize(frame *image.Gray, region image.Rectangle) *image.Gray {
	region = region.Intersect(frame.Bounds())
	dst := image.NewGray(image.Rect(0, 0, FaceSize, FaceSize))
	if region.Empty() {
		return dst
	}
	src := frame.SubImage(region).(*image.Gray)
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
