package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbweber/vagrant-ninja/internal/build"
	"github.com/jbweber/vagrant-ninja/internal/config"
	"github.com/jbweber/vagrant-ninja/internal/logging"
	"github.com/jbweber/vagrant-ninja/internal/logpanel"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	// Set by the root command before any subcommand runs
	settings *config.Settings
	logger   zerolog.Logger

	settingsFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vagrant-ninja",
	Short: "Vagrant Ninja - Vagrant VM provisioning tool",
	Long: `Vagrant Ninja generates a Vagrantfile and a bootstrap script from a
declarative YAML configuration and drives vagrant to build the VM.

Each VM gets its own target directory below the base directory. The
generated files, the build log and a run record are kept there.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentPreRunE = loadSettings

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "config", "", "settings file (default $XDG_CONFIG_HOME/vagrant-ninja/settings.yaml)")
	flags.String("base-dir", "", "parent directory of the VM target directories")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(doctorCmd)
	for _, verb := range build.QuickVerbs {
		rootCmd.AddCommand(newQuickCmd(verb))
	}
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(settingsFile, rootCmd.PersistentFlags())
	if err != nil {
		return err
	}
	settings = s

	if settings.NoColor {
		color.NoColor = true
	}

	if settings.LogFormat == config.LogFormatConsole {
		logger, err = logging.NewConsole(os.Stderr, settings.LogLevel, color.NoColor)
	} else {
		logger, err = logging.New(logging.Format(settings.LogFormat), settings.LogLevel, os.Stderr)
	}
	if err != nil {
		return err
	}

	logger.Debug().Str("settings", settings.File).Str("baseDir", settings.BaseDir).Msg("settings loaded")
	return nil
}

// terminalHost shows the log panel on a terminal.
type terminalHost struct {
	w *os.File
}

// RegisterPanel prints every new panel entry.
func (h terminalHost) RegisterPanel(panel *logpanel.Panel) {
	panel.Subscribe(logpanel.Printer(h.w))
}

// newService creates a build service showing its panel on stdout.
func newService() *build.Service {
	svc := build.NewService(settings, logpanel.New(), logger, build.Deps{})
	svc.AttachTo(terminalHost{w: os.Stdout})
	return svc
}
