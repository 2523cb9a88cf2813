package faceid

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Detection tuning. The minimum face size and detection quality match
// the capture conditions of a desk-mounted camera at arm's length.
const (
	detectMinSize     = 80
	detectShiftFactor = 0.1
	detectScaleFactor = 1.1
	detectClusterIoU  = 0.2
	detectMinQuality  = 5.0
)

// Detector locates face regions in a grayscale frame. It is identity
// agnostic; classification is the recognizer's job.
type Detector struct {
	classifier *pigo.Pigo
}

// NewDetector loads the binary detection cascade from disk.
func NewDetector(cascadePath string) (*Detector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade: %w", err)
	}
	return &Detector{classifier: classifier}, nil
}

// Detect returns the face bounding boxes found in the frame. An empty
// result is a normal outcome, never an error. Box order is stable
// within a single frame.
func (d *Detector) Detect(frame *image.Gray) []image.Rectangle {
	b := frame.Bounds()
	cols, rows := b.Dx(), b.Dy()
	if cols < detectMinSize || rows < detectMinSize {
		return nil
	}

	maxSize := cols
	if rows < maxSize {
		maxSize = rows
	}

	params := pigo.CascadeParams{
		MinSize:     detectMinSize,
		MaxSize:     maxSize,
		ShiftFactor: detectShiftFactor,
		ScaleFactor: detectScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: frame.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    frame.Stride,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, detectClusterIoU)

	var boxes []image.Rectangle
	for _, det := range dets {
		if det.Q < detectMinQuality {
			continue
		}
		half := det.Scale / 2
		box := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		box = box.Add(b.Min).Intersect(b)
		if box.Empty() {
			continue
		}
		boxes = append(boxes, box)
	}
	return boxes
}
