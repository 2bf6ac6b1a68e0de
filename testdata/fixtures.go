// Package testdata provides landmark recordings shared by the package and
// end-to-end tests.
package testdata

import (
	"embed"
	"fmt"

	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/gesture"
)

//go:embed recordings/*
var recordingsFS embed.FS

// SampleInterval is the spacing between scripted samples, matching the
// default inference interval.
const SampleInterval = 66

// LoadRecording loads an embedded recording by file name.
func LoadRecording(name string) (*gesture.Recording, error) {
	f, err := recordingsFS.Open("recordings/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	defer f.Close()

	rec, err := gesture.ReadRecording(f)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return rec, nil
}

// Recordings lists the embedded recording names.
func Recordings() ([]string, error) {
	entries, err := recordingsFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Pose returns the preset hand for a pose name: "open", "fist" or "pinch".
// "none" returns nil.
func Pose(name string) (*detector.HandLandmarks, error) {
	var h detector.HandLandmarks
	switch name {
	case "none":
		return nil, nil
	case "open":
		h = detector.OpenPalmLandmarks()
	case "fist":
		h = detector.FistLandmarks()
	case "pinch":
		h = detector.PinchLandmarks()
	default:
		return nil, fmt.Errorf("unknown pose %q", name)
	}
	return &h, nil
}

// Script builds a recording of the named poses, one every SampleInterval
// milliseconds. It panics on an unknown pose name.
func Script(photos int, poses ...string) *gesture.Recording {
	rec := &gesture.Recording{Photos: photos}
	for i, name := range poses {
		hand, err := Pose(name)
		if err != nil {
			panic(err)
		}
		rec.Samples = append(rec.Samples, gesture.Sample{
			TimeMS: int64(i * SampleInterval),
			Hand:   hand,
		})
	}
	return rec
}
