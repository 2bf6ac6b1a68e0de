package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/hearttree/internal/detector"
)

// Sample is one recorded detector answer. A nil Hand means no hand was in
// view.
type Sample struct {
	TimeMS int64                   `json:"t_ms"`
	Hand   *detector.HandLandmarks `json:"hand"`
}

// Time returns the sample time relative to start.
func (s Sample) Time(start time.Time) time.Time {
	return start.Add(time.Duration(s.TimeMS) * time.Millisecond)
}

// Recording is a landmark capture that can be classified offline.
type Recording struct {
	// Photos is the gallery size the recording was made against.
	Photos  int      `json:"photos"`
	Samples []Sample `json:"samples"`
}

// ReadRecording decodes a JSON recording and checks that sample times never
// go backwards.
func ReadRecording(r io.Reader) (*Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate reports whether the recording can be replayed.
func (r *Recording) Validate() error {
	if r.Photos < 0 {
		return fmt.Errorf("recording: negative photo count %d", r.Photos)
	}
	if len(r.Samples) == 0 {
		return errors.New("recording: no samples")
	}
	for i := 1; i < len(r.Samples); i++ {
		if r.Samples[i].TimeMS < r.Samples[i-1].TimeMS {
			return fmt.Errorf("recording: sample %d at %dms is before sample %d at %dms",
				i, r.Samples[i].TimeMS, i-1, r.Samples[i-1].TimeMS)
		}
	}
	return nil
}

// WriteRecording encodes rec as indented JSON.
func WriteRecording(w io.Writer, rec *Recording) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
