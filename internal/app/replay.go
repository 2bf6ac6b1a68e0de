package app

import (
	"time"

	"github.com/ayusman/hearttree/internal/gesture"
	"github.com/ayusman/hearttree/internal/scene"
)

// ReplayStep is the outcome of one recorded sample.
type ReplayStep struct {
	TimeMS  int64          `json:"t_ms" yaml:"t_ms"`
	Gesture gesture.State  `json:"gesture" yaml:"gesture"`
	Scene   scene.Snapshot `json:"scene" yaml:"scene"`
	Changed bool           `json:"changed" yaml:"changed"`
}

// Replay runs a recording through a fresh classifier and scene machine with
// gestures enabled, the way the frame loop would have seen it live.
func Replay(rec *gesture.Recording, cfg gesture.Config) []ReplayStep {
	classifier := gesture.NewClassifier(cfg)
	machine := scene.NewMachine()
	machine.SetGesturesEnabled(true)

	start := time.Unix(0, 0)
	steps := make([]ReplayStep, 0, len(rec.Samples))
	for _, s := range rec.Samples {
		g := classifier.Classify(s.Hand, s.Time(start))
		t := machine.HandleGesture(g, rec.Photos)
		steps = append(steps, ReplayStep{
			TimeMS:  s.TimeMS,
			Gesture: g,
			Scene:   machine.Snapshot(),
			Changed: t.Changed(),
		})
	}
	return steps
}
