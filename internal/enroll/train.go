package enroll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// TrainResult summarizes a completed training run.
type TrainResult struct {
	Samples   int       `json:"samples"`
	Users     int       `json:"users"`
	TrainedAt time.Time `json:"trained_at"`
}

// TrainModel rebuilds the recognizer from every stored sample and
// persists it. The guard blocks training while a recognition session
// runs and vice versa. Returns faceid.ErrInsufficientData when the
// sample store is empty.
func TrainModel(ctx context.Context, guard *session.Guard, store *samples.Store, rec *faceid.Recognizer) (TrainResult, error) {
	if err := guard.BeginTraining(); err != nil {
		return TrainResult{}, err
	}
	defer guard.EndTraining()

	if err := ctx.Err(); err != nil {
		return TrainResult{}, err
	}

	all, err := store.LoadAll()
	if err != nil {
		return TrainResult{}, fmt.Errorf("loading samples: %w", err)
	}

	faces := make([]faceid.LabeledFace, 0, len(all))
	for _, s := range all {
		faces = append(faces, faceid.LabeledFace{UserID: s.UserID, Face: s.Face})
	}

	start := time.Now()
	if err := rec.Train(faces); err != nil {
		return TrainResult{}, err
	}

	sampleCount, userCount := rec.Counts()
	log.Printf("trained model on %d samples from %d users in %s", sampleCount, userCount, time.Since(start).Round(time.Millisecond))
	return TrainResult{Samples: sampleCount, Users: userCount, TrainedAt: rec.TrainedAt()}, nil
}
