package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Display backends.
const (
	DisplayGL       = "gl"
	DisplayTUI      = "tui"
	DisplayHeadless = "headless"
)

// EnvPrefix is prepended to every environment override, e.g. MORPHTREE_SEED.
const EnvPrefix = "MORPHTREE"

type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

type AudioConfig struct {
	Enabled bool    `json:"enabled" mapstructure:"enabled"`
	Volume  float64 `json:"volume" mapstructure:"volume"`
}

type WindowConfig struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Config is the full runtime configuration.
type Config struct {
	Count   int    `json:"count" mapstructure:"count"`
	Seed    uint64 `json:"seed" mapstructure:"seed"` // 0 derives one from the clock
	Workers int    `json:"workers" mapstructure:"workers"`
	Display string `json:"display" mapstructure:"display"`
	FPS     int    `json:"fps" mapstructure:"fps"`
	// AutoToggle flips the mode every so many seconds; 0 disables it.
	AutoToggle float64 `json:"autoToggle" mapstructure:"autoToggle"`
	LogLevel   string  `json:"logLevel" mapstructure:"logLevel"`
	// LogFile receives logs instead of stderr when set.
	LogFile string `json:"logFile" mapstructure:"logFile"`

	Stream StreamConfig `json:"stream" mapstructure:"stream"`
	Audio  AudioConfig  `json:"audio" mapstructure:"audio"`
	Window WindowConfig `json:"window" mapstructure:"window"`
}

func setDefaults() {
	viper.SetDefault("count", 2000)
	viper.SetDefault("seed", 0)
	viper.SetDefault("workers", 1)
	viper.SetDefault("display", DisplayGL)
	viper.SetDefault("fps", 60)
	viper.SetDefault("autoToggle", 0)
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFile", "")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.addr", ":8088")

	viper.SetDefault("audio.enabled", true)
	viper.SetDefault("audio.volume", 0.5)

	viper.SetDefault("window.width", 1280)
	viper.SetDefault("window.height", 800)
}

// Load applies defaults, the optional config file at path (format taken
// from its extension) and MORPHTREE_* environment overrides, then validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Display = strings.ToLower(strings.TrimSpace(cfg.Display))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.Count <= 0:
		return fmt.Errorf("count: must be positive, got %d", c.Count)
	case c.Workers < 1:
		return fmt.Errorf("workers: must be at least 1, got %d", c.Workers)
	case c.FPS <= 0:
		return fmt.Errorf("fps: must be positive, got %d", c.FPS)
	case c.AutoToggle < 0:
		return fmt.Errorf("autoToggle: must not be negative, got %v", c.AutoToggle)
	case c.Audio.Volume < 0 || c.Audio.Volume > 1:
		return fmt.Errorf("audio.volume: must be within [0,1], got %v", c.Audio.Volume)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window: size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	switch c.Display {
	case DisplayGL, DisplayTUI, DisplayHeadless:
	default:
		return fmt.Errorf("display: unknown backend %q", c.Display)
	}
	if c.Stream.Enabled && c.Stream.Addr == "" {
		return fmt.Errorf("stream.addr: required when streaming is enabled")
	}
	return nil
}

// RegisterFlags adds command-line overrides for the most used keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("count", 2000, "number of particles")
	fs.Uint64("seed", 0, "generation seed (0 derives one from the clock)")
	fs.Int("workers", 1, "goroutines sharing each tick")
	fs.String("display", DisplayGL, "gl, tui or headless")
	fs.Float64("autoToggle", 0, "flip the mode every N seconds (0 disables)")
	fs.String("logLevel", "info", "trace, debug, info, warn or error")
	fs.Bool("stream.enabled", false, "serve frames over websocket")
	fs.String("stream.addr", ":8088", "websocket listen address")
	fs.Bool("audio.enabled", true, "play chimes on mode changes")
}

// BindFlags lets explicitly set flags take precedence over file and env values.
func BindFlags(fs *pflag.FlagSet) error {
	if err := viper.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}
