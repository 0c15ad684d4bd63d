package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/mealbook/internal/ids"
	"github.com/mesh-intelligence/mealbook/internal/logging"
	"github.com/mesh-intelligence/mealbook/internal/snapshot"
	"github.com/mesh-intelligence/mealbook/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "MEALBOOK"
)

// Config keys.
const (
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyExportDir    = "export_dir"
	cfgKeyIDStrategy   = "ids.strategy"
	cfgKeyIDNode       = "ids.node"
	cfgKeyLogLevel     = "log.level"
	cfgKeyLogFormat    = "log.format"
	cfgKeyServerAddr   = "server.addr"
	cfgKeyCORSOrigins  = "server.cors_origins"
	cfgKeySnapshotFile = "snapshot_file"
)

const defaultServerAddr = ":3000"

// configFile is the shape of config.yaml written by init.
type configFile struct {
	Backend      string        `yaml:"backend"`
	DataDir      string        `yaml:"data_dir,omitempty"`
	ExportDir    string        `yaml:"export_dir,omitempty"`
	SnapshotFile string        `yaml:"snapshot_file"`
	IDs          idsSection    `yaml:"ids"`
	Log          logSection    `yaml:"log"`
	Server       serverSection `yaml:"server"`
}

type idsSection struct {
	Strategy string `yaml:"strategy"`
	Node     int64  `yaml:"node"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type serverSection struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:      types.BackendSQLite,
		SnapshotFile: snapshot.DefaultFile,
		IDs:          idsSection{Strategy: ids.StrategySequential, Node: 1},
		Log:          logSection{Level: "info", Format: logging.FormatConsole},
		Server:       serverSection{Addr: defaultServerAddr},
	}
}

// loadDotEnv reads .env from the working directory. A missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// loadConfig reads config.yaml from configDir with viper. The directory and
// a default config.yaml are created on first run; environment variables
// prefixed MEALBOOK_ override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfigFile()); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	d := defaultConfigFile()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyExportDir, "")
	v.SetDefault(cfgKeySnapshotFile, d.SnapshotFile)
	v.SetDefault(cfgKeyIDStrategy, d.IDs.Strategy)
	v.SetDefault(cfgKeyIDNode, d.IDs.Node)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFormat, d.Log.Format)
	v.SetDefault(cfgKeyServerAddr, d.Server.Addr)
	v.SetDefault(cfgKeyCORSOrigins, []string{})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates path from cfg unless it already exists.
func writeConfigIfMissing(path string, cfg configFile) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# mealbook configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
