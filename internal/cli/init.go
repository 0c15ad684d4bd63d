package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mealbook/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize mealbook storage",
		Long:  "Create the configuration, data and export directories, then initialize the meal store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return sysErr(err)
	}
	exportDir, err := paths.ResolveExportDir(a.flags.exportDir, a.cfg.GetString(cfgKeyExportDir))
	if err != nil {
		return sysErr(err)
	}

	// Explicit directories given to init are remembered in config.yaml.
	configPath := filepath.Join(configDir, configFileExt)
	if a.flags.dataDir != "" || a.flags.exportDir != "" {
		if a.flags.dataDir != "" {
			a.cfg.Set(cfgKeyDataDir, dataDir)
		}
		if a.flags.exportDir != "" {
			a.cfg.Set(cfgKeyExportDir, exportDir)
		}
		if err := a.cfg.WriteConfigAs(configPath); err != nil {
			return sysErr(fmt.Errorf("write config: %w", err))
		}
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return sysErr(fmt.Errorf("create export directory: %w", err))
	}

	b, err := a.attachBackend()
	if err != nil {
		return err
	}
	if err := b.Detach(); err != nil {
		return sysErr(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]string{"config": configPath, "data": dataDir, "export": exportDir})
	}
	fmt.Fprintln(out, "mealbook initialized")
	fmt.Fprintf(out, "  config: %s\n  data:   %s\n  export: %s\n", configPath, dataDir, exportDir)
	return nil
}
