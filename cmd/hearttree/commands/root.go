package commands

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/hearttree/internal/config"
	"github.com/ayusman/hearttree/internal/log"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
}

// NewRootCommand builds the hearttree command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "hearttree",
		Short: "Gesture-driven particle Christmas tree",
		Long: `hearttree renders a particle Christmas tree that scatters into a heart
and a photo gallery. It is controlled by hand gestures seen through a
webcam, or manually through its HTTP API.

Configuration is read from a YAML file given with --config; built-in
defaults apply otherwise. See 'hearttree config print'.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default: built-in defaults)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newServeCommand(g))
	root.AddCommand(newClassifyCommand(g))
	root.AddCommand(newConfigCommand(g))
	return root
}

// Execute runs the hearttree command.
func Execute() error {
	return NewRootCommand().Execute()
}

// load reads the config file and applies the global overrides, then sets up
// the process logger.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	log.InitWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
