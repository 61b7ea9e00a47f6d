package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/pkg/errors"
)

const dbFileName = "qlogstat.db"

type Config struct {
	LogPath string

	Plot       bool
	PlotWidth  int
	PlotHeight int

	JSON    bool
	Plain   bool
	NoColor bool
	NoWait  bool

	Save             bool
	DataDir          string
	DBPath           string
	MaxStoredResults int
	RetentionPeriod  time.Duration

	LogLevel string
}

// File mirrors the YAML config file. Pointers distinguish "unset" from an
// explicit false or zero.
type File struct {
	LogPath          string `yaml:"log_path,omitempty"`
	Plot             *bool  `yaml:"plot,omitempty"`
	PlotWidth        int    `yaml:"plot_width,omitempty"`
	PlotHeight       int    `yaml:"plot_height,omitempty"`
	JSON             bool   `yaml:"json,omitempty"`
	Plain            bool   `yaml:"plain,omitempty"`
	NoColor          bool   `yaml:"no_color,omitempty"`
	NoWait           bool   `yaml:"no_wait,omitempty"`
	Save             bool   `yaml:"save,omitempty"`
	DataDir          string `yaml:"data_dir,omitempty"`
	DBPath           string `yaml:"db_path,omitempty"`
	MaxStoredResults int    `yaml:"max_stored_results,omitempty"`
	Retention        string `yaml:"retention,omitempty"`
	LogLevel         string `yaml:"log_level,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		LogPath:          "./server.qlog",
		Plot:             true,
		PlotWidth:        72,
		PlotHeight:       16,
		DataDir:          "./data",
		MaxStoredResults: 1000,
		RetentionPeriod:  90 * 24 * time.Hour,
		LogLevel:         "info",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/qlogstat/config.yaml, falling back to
// ~/.config. It is empty when no home directory can be found.
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "qlogstat", "config.yaml")
}

// LoadFile reads the YAML config at path. A missing file is not an error
// unless required is set, which is the case for an explicit --config.
func LoadFile(path string, required bool) (*File, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, errors.ErrInvalidConfig("read config file "+path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.ErrInvalidConfig("parse config file "+path, err)
	}
	return &f, nil
}

// ApplyFile overlays the values set in f.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}
	if f.LogPath != "" {
		c.LogPath = f.LogPath
	}
	if f.Plot != nil {
		c.Plot = *f.Plot
	}
	if f.PlotWidth > 0 {
		c.PlotWidth = f.PlotWidth
	}
	if f.PlotHeight > 0 {
		c.PlotHeight = f.PlotHeight
	}
	c.JSON = c.JSON || f.JSON
	c.Plain = c.Plain || f.Plain
	c.NoColor = c.NoColor || f.NoColor
	c.NoWait = c.NoWait || f.NoWait
	c.Save = c.Save || f.Save
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.DBPath != "" {
		c.DBPath = f.DBPath
	}
	if f.MaxStoredResults > 0 {
		c.MaxStoredResults = f.MaxStoredResults
	}
	if f.Retention != "" {
		d, err := time.ParseDuration(f.Retention)
		if err != nil || d <= 0 {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid retention %q: must be a positive duration (e.g. 720h)", f.Retention), err)
		}
		c.RetentionPeriod = d
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	return nil
}

func (c *Config) LoadFromEnv() error {
	if path := os.Getenv("QLOGSTAT_LOG_PATH"); path != "" {
		c.LogPath = path
	}
	if plot := os.Getenv("QLOGSTAT_PLOT"); plot != "" {
		b, err := strconv.ParseBool(plot)
		if err != nil {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid QLOGSTAT_PLOT %q: must be a boolean", plot), err)
		}
		c.Plot = b
	}
	if w := os.Getenv("QLOGSTAT_PLOT_WIDTH"); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n <= 0 {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid QLOGSTAT_PLOT_WIDTH %q: must be a positive integer", w), err)
		}
		c.PlotWidth = n
	}
	if h := os.Getenv("QLOGSTAT_PLOT_HEIGHT"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n <= 0 {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid QLOGSTAT_PLOT_HEIGHT %q: must be a positive integer", h), err)
		}
		c.PlotHeight = n
	}
	if save := os.Getenv("QLOGSTAT_SAVE"); save == "true" || save == "1" {
		c.Save = true
	}
	if dataDir := os.Getenv("QLOGSTAT_DATA_DIR"); dataDir != "" {
		c.DataDir = dataDir
	}
	if db := os.Getenv("QLOGSTAT_DB"); db != "" {
		c.DBPath = db
	}
	if max := os.Getenv("QLOGSTAT_MAX_STORED_RESULTS"); max != "" {
		m, err := strconv.Atoi(max)
		if err != nil || m <= 0 {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid QLOGSTAT_MAX_STORED_RESULTS %q: must be a positive integer", max), err)
		}
		c.MaxStoredResults = m
	}
	if ret := os.Getenv("QLOGSTAT_RETENTION"); ret != "" {
		d, err := time.ParseDuration(ret)
		if err != nil || d <= 0 {
			return errors.ErrInvalidConfig(fmt.Sprintf("invalid QLOGSTAT_RETENTION %q: must be a positive duration (e.g. 720h)", ret), err)
		}
		c.RetentionPeriod = d
	}
	if level := os.Getenv("QLOGSTAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if os.Getenv("NO_COLOR") != "" {
		c.NoColor = true
	}
	return nil
}

func (c *Config) Validate() error {
	if c.LogPath == "" {
		return errors.ErrInvalidConfig("log path cannot be empty", nil)
	}
	if c.PlotWidth < 20 || c.PlotWidth > 400 {
		return errors.ErrInvalidConfig(fmt.Sprintf("invalid plot width %d: must be 20-400", c.PlotWidth), nil)
	}
	if c.PlotHeight < 4 || c.PlotHeight > 200 {
		return errors.ErrInvalidConfig(fmt.Sprintf("invalid plot height %d: must be 4-200", c.PlotHeight), nil)
	}
	if c.JSON && c.Plain {
		return errors.ErrInvalidConfig("--json and --plain are mutually exclusive", nil)
	}
	if c.DataDir == "" && c.DBPath == "" {
		return errors.ErrInvalidConfig("data directory cannot be empty", nil)
	}
	if c.MaxStoredResults <= 0 {
		return errors.ErrInvalidConfig("max stored results must be > 0", nil)
	}
	if c.RetentionPeriod <= 0 {
		return errors.ErrInvalidConfig("retention must be > 0", nil)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.ErrInvalidConfig(fmt.Sprintf("invalid log level %q: must be debug, info, warn or error", c.LogLevel), nil)
	}
	return nil
}

// Database returns the history database path: DBPath when set, otherwise
// a file inside DataDir.
func (c *Config) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, dbFileName)
}
