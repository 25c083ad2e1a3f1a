package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"attrparse/internal/config"
	"attrparse/internal/observ"
	"attrparse/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "attrparse",
	Short:         "Attribute grammar parser with ambiguity-preserving parse forests",
	Long:          `attrparse compiles attribute grammars and parses input into shared parse forests`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupSession(cmd)
	},
}

// errReported означает, что команда уже напечатала причину неудачи
var errReported = errors.New("failed")

// main registers the subcommands and global flags and runs the root
// command. Any error exits with status 1.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	// Добавляем команды
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(grammarsCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "path to attrparse.toml (default: searched upward from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer capacity for --trace-mode ring")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")

	err := rootCmd.Execute()
	session.close(rootCmd)
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

// sessionState is what PersistentPreRunE prepares for every command.
type sessionState struct {
	cfg      config.Config
	cfgPath  string
	timer    *observ.Timer
	timings  bool
	cleanups []func()
}

var session = &sessionState{timer: observ.NewTimer()}

func setupSession(cmd *cobra.Command) error {
	root := cmd.Root()
	cfgPath, err := root.PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if cfgPath != "" {
		session.cfg, err = config.Load(cfgPath)
		session.cfgPath = cfgPath
	} else {
		session.cfg, session.cfgPath, err = config.Discover(".")
	}
	if err != nil {
		return err
	}

	colorMode, err := root.PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	if err := applyColor(colorMode); err != nil {
		return err
	}

	session.timings, err = root.PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	session.cleanups = append(session.cleanups, stopProf)

	stopTrace, err := setupTracing(cmd, session.cfg.Trace)
	if err != nil {
		return err
	}
	session.cleanups = append(session.cleanups, stopTrace)
	return nil
}

// close runs cleanups once, in reverse order, and prints timings.
func (s *sessionState) close(cmd *cobra.Command) {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
	if s.timings {
		printTimings(cmd.ErrOrStderr(), s.timer)
		s.timings = false
	}
}

func applyColor(mode string) error {
	switch mode {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
