package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/gesture"
)

type classifyFlags struct {
	photos  int
	output  string
	changes bool
}

func newClassifyCommand(g *globalFlags) *cobra.Command {
	f := &classifyFlags{}

	cmd := &cobra.Command{
		Use:   "classify <recording.json>",
		Short: "Replay a landmark recording through the gesture classifier",
		Long: `Replay a JSON landmark recording through the gesture classifier and
the scene state machine, printing the label and scene state after every
sample. Thresholds come from the gesture section of the config.

Recording format:
  {"photos": 3, "samples": [{"t_ms": 0, "hand": {"points": [...21 points]}}, ...]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer file.Close()

			rec, err := gesture.ReadRecording(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("photos") {
				rec.Photos = f.photos
			}

			steps := app.Replay(rec, gesture.Config{
				PinchThreshold: cfg.Gesture.PinchThreshold,
				FastMoveSpeed:  cfg.Gesture.FastMoveSpeed,
			})
			if f.changes {
				kept := steps[:0]
				for _, s := range steps {
					if s.Changed {
						kept = append(kept, s)
					}
				}
				steps = kept
			}

			return writeSteps(cmd, f.output, steps)
		},
	}

	cmd.Flags().IntVar(&f.photos, "photos", 0, "override the gallery size stored in the recording")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&f.changes, "changes", false, "only print samples that changed the scene")
	return cmd
}

func writeSteps(cmd *cobra.Command, format string, steps []app.ReplayStep) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(steps)
	case "yaml":
		data, err := yaml.Marshal(steps)
		if err != nil {
			return fmt.Errorf("encode steps: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "text":
		for _, s := range steps {
			focus := "-"
			if s.Scene.HasFocus() {
				focus = fmt.Sprint(s.Scene.Focused)
			}
			mark := ""
			if s.Changed {
				mark = " *"
			}
			fmt.Fprintf(out, "%6dms  %-5s  %-9s  focus=%s%s\n", s.TimeMS, s.Gesture.Label, s.Scene.State, focus, mark)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
