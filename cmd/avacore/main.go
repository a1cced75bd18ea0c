// avacore runs, disassembles, debugs and traces programs for the stack core.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colorfulnotion/avacore/config"
	"github.com/colorfulnotion/avacore/log"
	"github.com/colorfulnotion/avacore/program"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// globals are the persistent flags plus the configuration they resolve to.
type globals struct {
	configPath string
	logLevel   string
	modules    string

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "avacore",
		Short:   "Cycle-stepped stack bytecode engine",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Configuration file (default: avacore.toml in this or a parent directory)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.modules, "debug", "", "Log modules to enable, comma separated or \"all\"")

	rootCmd.AddCommand(
		newRunCmd(g),
		newDisasmCmd(g),
		newDebugCmd(g),
		newGenCmd(g),
		newTraceCmd(g),
		newConfigCmd(g),
	)
	return rootCmd
}

func (g *globals) load(cmd *cobra.Command) error {
	var err error
	if g.configPath != "" {
		g.cfg, err = config.Load(g.configPath)
	} else {
		g.cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		g.cfg.Log.Level = g.logLevel
	}
	if cmd.Flags().Changed("debug") {
		g.cfg.Log.Modules = g.modules
	}
	if err := g.cfg.Validate(); err != nil {
		return err
	}

	if g.cfg.Log.JSON {
		if err := log.InitJSONLogger(cmd.ErrOrStderr(), g.cfg.Log.Level); err != nil {
			return err
		}
	} else {
		log.InitLogger(g.cfg.Log.Level)
	}
	if g.cfg.Log.Syslog != "" {
		l, err := log.NewLoggerWithSyslog(log.Root().Handler(), g.cfg.Log.Syslog)
		if err != nil {
			return err
		}
		log.SetDefault(l)
	}
	if g.cfg.Log.Modules != "" {
		log.EnableModules(g.cfg.Log.Modules)
	}
	if g.cfg.Path != "" {
		log.Debug(log.CLIMonitoring, "configuration loaded", "path", g.cfg.Path)
	}
	return nil
}

// programSource is the flag set shared by every command taking a program.
type programSource struct {
	hex    bool
	sample string
}

func (s *programSource) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.hex, "hex", false, "Treat the program file as hex text")
	cmd.Flags().StringVar(&s.sample, "sample", "", "Use a built-in program: "+strings.Join(sampleNames(), ", "))
}

// load returns the named sample, the file in args, or the hello program.
func (s *programSource) load(args []string) (*program.Program, error) {
	if s.sample != "" {
		code, ok := program.Samples[s.sample]
		if !ok {
			return nil, fmt.Errorf("unknown sample %q (have %s)", s.sample, strings.Join(sampleNames(), ", "))
		}
		return program.New(code), nil
	}
	if len(args) == 0 {
		return program.New(program.Hello), nil
	}
	return program.Load(args[0], s.hex)
}

func sampleNames() []string {
	names := make([]string, 0, len(program.Samples))
	for name := range program.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
