package faceid

import (
	"image"
	"math"
)

// Feature extraction parameters. An 8x8 grid of local binary pattern
// histograms over the 200x200 normalized face, matching the grid the
// station's models have always been trained with.
const (
	lbpGrid = 8
	lbpBins = 256

	// FeatureDim is the length of the vectors Features produces.
	FeatureDim = lbpGrid * lbpGrid * lbpBins
)

// lbpNeighbors walks the 8-neighborhood clockwise from top-left.
var lbpNeighbors = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// Features computes an L2-normalized grid LBP histogram for a
// normalized face patch. Vectors from different image sizes are not
// comparable; callers must pass Normalize output.
func Features(face *image.Gray) []float32 {
	b := face.Bounds()
	w, h := b.Dx(), b.Dy()

	hist := make([]float32, FeatureDim)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := face.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			var code int
			for bit, off := range lbpNeighbors {
				if face.GrayAt(b.Min.X+x+off[0], b.Min.Y+y+off[1]).Y >= center {
					code |= 1 << bit
				}
			}
			cellX := x * lbpGrid / w
			cellY := y * lbpGrid / h
			hist[(cellY*lbpGrid+cellX)*lbpBins+code]++
		}
	}

	// L2 normalization keeps cosine distances comparable across
	// face crops of different texture density.
	var norm float64
	for _, v := range hist {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range hist {
			hist[i] *= inv
		}
	}
	return hist
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); lower means
// a closer match.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// Sharpness returns the Laplacian variance of a grayscale patch.
// Blurry captures score low; enrollment skips them.
func Sharpness(face *image.Gray) float64 {
	b := face.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(face.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			up := float64(face.GrayAt(b.Min.X+x, b.Min.Y+y-1).Y)
			down := float64(face.GrayAt(b.Min.X+x, b.Min.Y+y+1).Y)
			left := float64(face.GrayAt(b.Min.X+x-1, b.Min.Y+y).Y)
			right := float64(face.GrayAt(b.Min.X+x+1, b.Min.Y+y).Y)
			lap := 4*c - up - down - left - right
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
