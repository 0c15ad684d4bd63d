// Package cli implements the mealbook command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/export"
	"github.com/mesh-intelligence/mealbook/internal/logging"
	"github.com/mesh-intelligence/mealbook/internal/paths"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	exportDir string
	logLevel  string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
	log   *zap.Logger
}

// NewRootCmd creates the top-level "mealbook" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "mealbook",
		Short: "Migrate, copy and export food diary records",
		Long: "Mealbook keeps a food diary keyed by date. It moves or copies a day's meals\n" +
			"to another date, clears days, and exports days to an xlsx workbook.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.log.Sync() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/mealbook)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.mealbook-db)")
	pf.StringVar(&a.flags.exportDir, "export-dir", "", "workbook directory (default: $(CWD)/trackers)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newMigrateCmd(a),
		newCopyCmd(a),
		newClearCmd(a),
		newApplyCmd(a),
		newExportCmd(a),
		newSnapshotCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads .env and config.yaml and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := loadDotEnv(); err != nil {
		return sysErr(err)
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	a.cfg, err = loadConfig(configDir)
	if err != nil {
		return sysErr(err)
	}

	level := a.flags.logLevel
	if level == "" {
		level = a.cfg.GetString(cfgKeyLogLevel)
	}
	a.log, err = logging.New(logging.Options{
		Level:  level,
		Format: a.cfg.GetString(cfgKeyLogFormat),
		Output: cmd.ErrOrStderr(),
	})
	return err
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// systemError marks failures of the environment rather than the input.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// exitCode maps an error to 1 for bad input and 2 for store, filesystem
// and other system failures.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if types.IsInputError(err) {
		return exitUserError
	}
	var se *types.StoreError
	var fe *export.FilesystemError
	var sys *systemError
	if errors.As(err, &se) || errors.As(err, &fe) || errors.As(err, &sys) {
		return exitSysError
	}
	return exitUserError
}
