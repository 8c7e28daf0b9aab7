package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const EnvPrefix = "X2SYS"

type X2SysConfig struct {
	Home    string `mapstructure:"home"`
	GMTHome string `mapstructure:"gmt_home"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Read struct {
		InitialCapacity int `mapstructure:"initial_capacity"`
		DefaultYear     int `mapstructure:"default_year"`
	} `mapstructure:"read"`

	Distance struct {
		Mode string `mapstructure:"mode"`
	} `mapstructure:"distance"`

	Output struct {
		Binary   bool   `mapstructure:"binary"`
		Compress bool   `mapstructure:"compress"`
		Fields   string `mapstructure:"fields"`
	} `mapstructure:"output"`

	MGG struct {
		PathsFile string `mapstructure:"paths_file"`
	} `mapstructure:"mgg"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("home", "")
	v.SetDefault("gmt_home", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("read.initial_capacity", 2048)
	v.SetDefault("read.default_year", 0)
	v.SetDefault("distance.mode", "flat-earth")
	v.SetDefault("output.binary", false)
	v.SetDefault("output.compress", false)
	v.SetDefault("output.fields", "")
	v.SetDefault("mgg.paths_file", "")
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// loads defaults only. X2SYS_* variables override both, e.g. X2SYS_HOME or
// X2SYS_LOG_LEVEL; GMTHOME sets gmt_home.
func LoadConfig(path string) (*X2SysConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gmt_home", "GMTHOME"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg X2SysConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

var ErrNoHome = errors.New("x2sys: home directory not resolved")

// HomeResolver settles the definitions directory once and returns the
// cached answer afterwards. Order: the configured home (which X2SYS_HOME
// already overrides), then <gmt_home>/share/x2sys, then the platform
// default.
type HomeResolver struct {
	once    sync.Once
	home    string
	gmtHome string
	goos    string
	dir     string
}

func NewHomeResolver(cfg *X2SysConfig) *HomeResolver {
	return &HomeResolver{home: cfg.Home, gmtHome: cfg.GMTHome, goos: runtime.GOOS}
}

func (r *HomeResolver) Home() string {
	r.once.Do(func() {
		switch {
		case r.home != "":
			r.dir = r.home
		case r.gmtHome != "":
			r.dir = filepath.Join(r.gmtHome, "share", "x2sys")
		case r.goos == "windows":
			r.dir = `C:\usr\local\gmt\x2sys`
		default:
			r.dir = "/usr/local/gmt/x2sys"
		}
	})
	return r.dir
}

// CheckHome resolves the home directory and verifies it exists.
func (r *HomeResolver) CheckHome() (string, error) {
	dir := r.Home()
	st, err := os.Stat(dir)
	if err != nil {
		return dir, fmt.Errorf("%w: %s: %v", ErrNoHome, dir, err)
	}
	if !st.IsDir() {
		return dir, fmt.Errorf("%w: %s is not a directory", ErrNoHome, dir)
	}
	return dir, nil
}
