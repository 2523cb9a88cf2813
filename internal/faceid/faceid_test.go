package faceid

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"
)

// texture fills a normalized-size face with a deterministic pattern.
// Different generators produce clearly separable LBP histograms.
func texture(gen func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, FaceSize, FaceSize))
	for y := 0; y < FaceSize; y++ {
		for x := 0; x < FaceSize; x++ {
			img.SetGray(x, y, color.Gray{Y: gen(x, y)})
		}
	}
	return img
}

func verticalStripes(x, y int) uint8 {
	if (x/4)%2 == 0 {
		return 220
	}
	return 30
}

func horizontalStripes(x, y int) uint8 {
	if (y/4)%2 == 0 {
		return 220
	}
	return 30
}

func checkerboard(x, y int) uint8 {
	if (x/8+y/8)%2 == 0 {
		return 220
	}
	return 30
}

func TestFeaturesNormalized(t *testing.T) {
	features := Features(texture(checkerboard))
	if len(features) != FeatureDim {
		t.Fatalf("feature length = %d, want %d", len(features), FeatureDim)
	}

	var norm float64
	for _, v := range features {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-3 {
		t.Errorf("squared norm = %f, want 1", norm)
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0, 0}
	if d := CosineDistance(a, a); d > 1e-6 {
		t.Errorf("distance to self = %f, want 0", d)
	}
	b := []float32{0, 1, 0}
	if d := CosineDistance(a, b); math.Abs(d-1) > 1e-6 {
		t.Errorf("orthogonal distance = %f, want 1", d)
	}
}

func TestSharpness(t *testing.T) {
	flat := texture(func(x, y int) uint8 { return 128 })
	if s := Sharpness(flat); s != 0 {
		t.Errorf("flat image sharpness = %f, want 0", s)
	}
	if s := Sharpness(texture(checkerboard)); s < 60 {
		t.Errorf("checkerboard sharpness = %f, want at least 60", s)
	}
}

func TestNormalizeClampsAndScales(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 640, 480))
	// Region partially outside the frame.
	region := image.Rect(600, 440, 700, 540)
	face := Normalize(frame, region)
	if got := face.Bounds(); got.Dx() != FaceSize || got.Dy() != FaceSize {
		t.Errorf("normalized size = %dx%d, want %dx%d", got.Dx(), got.Dy(), FaceSize, FaceSize)
	}
}

func TestToGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 10, 10))
	gray := ToGray(rgba)
	if got := gray.Bounds(); got.Dx() != 10 || got.Dy() != 10 {
		t.Errorf("gray size = %dx%d, want 10x10", got.Dx(), got.Dy())
	}
	// Already-gray frames pass through untouched.
	if again := ToGray(gray); again != gray {
		t.Error("gray input should be returned as-is")
	}
}

func TestRecognizerNotLoaded(t *testing.T) {
	rec := NewRecognizer(filepath.Join(t.TempDir(), "model.bin"))
	if rec.Loaded() {
		t.Fatal("fresh recognizer should not be loaded")
	}
	if err := rec.Load(); err != ErrModelNotLoaded {
		t.Fatalf("Load on missing file: got %v, want ErrModelNotLoaded", err)
	}
	if _, _, err := rec.Classify(texture(checkerboard)); err != ErrModelNotLoaded {
		t.Fatalf("Classify without model: got %v, want ErrModelNotLoaded", err)
	}
}

func TestTrainRejectsEmptySet(t *testing.T) {
	rec := NewRecognizer(filepath.Join(t.TempDir(), "model.bin"))
	if err := rec.Train(nil); err != ErrInsufficientData {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestTrainAndClassify(t *testing.T) {
	rec := NewRecognizer(filepath.Join(t.TempDir(), "model.bin"))
	err := rec.Train([]LabeledFace{
		{UserID: 1, Face: texture(verticalStripes)},
		{UserID: 2, Face: texture(horizontalStripes)},
		{UserID: 3, Face: texture(checkerboard)},
	})
	if err != nil {
		t.Fatalf("training: %v", err)
	}
	if !rec.Loaded() {
		t.Fatal("recognizer should be loaded after training")
	}

	samples, users := rec.Counts()
	if samples != 3 || users != 3 {
		t.Errorf("counts = %d samples, %d users", samples, users)
	}

	id, dist, err := rec.Classify(texture(verticalStripes))
	if err != nil {
		t.Fatalf("classifying: %v", err)
	}
	if id != 1 {
		t.Errorf("classified as user %d, want 1", id)
	}
	if dist > 0.01 {
		t.Errorf("distance to own training image = %f, want near 0", dist)
	}

	id, _, err = rec.Classify(texture(checkerboard))
	if err != nil {
		t.Fatalf("classifying: %v", err)
	}
	if id != 3 {
		t.Errorf("classified as user %d, want 3", id)
	}
}

func TestClassifyUnknownFaceHasLargerDistance(t *testing.T) {
	rec := NewRecognizer(filepath.Join(t.TempDir(), "model.bin"))
	err := rec.Train([]LabeledFace{
		{UserID: 1, Face: texture(verticalStripes)},
		{UserID: 2, Face: texture(horizontalStripes)},
	})
	if err != nil {
		t.Fatalf("training: %v", err)
	}

	unknown := texture(func(x, y int) uint8 {
		if ((x+y)/6)%2 == 0 {
			return 200
		}
		return 50
	})
	_, dist, err := rec.Classify(unknown)
	if err != nil {
		t.Fatalf("classifying: %v", err)
	}
	if dist < 0.1 {
		t.Errorf("unknown texture distance = %f, expected clearly above a match", dist)
	}
}

func TestModelPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "recognizer.bin")
	rec := NewRecognizer(path)
	err := rec.Train([]LabeledFace{
		{UserID: 7, Face: texture(verticalStripes)},
		{UserID: 9, Face: texture(checkerboard)},
	})
	if err != nil {
		t.Fatalf("training: %v", err)
	}
	trainedAt := rec.TrainedAt()

	reloaded := NewRecognizer(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("loading persisted model: %v", err)
	}
	if !reloaded.TrainedAt().Equal(trainedAt) {
		t.Errorf("trained-at = %v, want %v", reloaded.TrainedAt(), trainedAt)
	}

	id, _, err := reloaded.Classify(texture(checkerboard))
	if err != nil {
		t.Fatalf("classifying after reload: %v", err)
	}
	if id != 9 {
		t.Errorf("classified as user %d, want 9", id)
	}
}
