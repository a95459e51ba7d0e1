// Package commands implements the roadcover command line.
package commands

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"

	"roadcover/internal/buildinfo"
	"roadcover/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "roadcover",
		Short: "Plan multi-day routes that drive every road of a network",
		Long: `roadcover - multi-day road coverage planner

Converts OpenStreetMap extracts into road segments and plans daily
depot-to-depot routes under a distance budget until every segment is covered.`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log planner progress to stderr")
	pf.Int64("depot", 0, "depot node id")
	pf.Float64("max-distance", 0, "maximum distance per day in km")
	pf.StringP("algorithm", "a", "", "day solver: greedy or genetic")
	pf.Int64("seed", 0, "random seed (0 = time based)")
	pf.Int("max-days", 0, "stop after this many days")

	for key, flag := range map[string]string{
		"planner.depot":       "depot",
		"planner.maxDistance": "max-distance",
		"algorithm":           "algorithm",
		"planner.seed":        "seed",
		"planner.maxDays":     "max-days",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(newPlanCmd(a), newInspectCmd(a), newConvertCmd(a))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// config resolves settings with precedence flag > env > file > default.
func (a *app) config() (config.Config, error) {
	def, err := yaml.Marshal(config.Default())
	if err != nil {
		return config.Config{}, err
	}
	a.v.SetConfigType("yaml")
	if err := a.v.ReadConfig(bytes.NewReader(def)); err != nil {
		return config.Config{}, err
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.MergeInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read %s: %w", a.cfgFile, err)
		}
	}
	for key, env := range map[string]string{
		"planner.depot":       "ROADCOVER_DEPOT",
		"planner.maxDistance": "ROADCOVER_MAX_DISTANCE",
		"algorithm":           "ROADCOVER_ALGORITHM",
		"telemetry.exporter":  "ROADCOVER_TRACE",
	} {
		_ = a.v.BindEnv(key, env)
	}

	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) logger(w io.Writer) *slog.Logger {
	if !a.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, nil))
}
