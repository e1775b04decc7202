// Package platform resolves per-OS locations for insync state.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "insync"

// HomeEnv overrides every per-OS base directory when set.
const HomeEnv = "INSYNC_HOME"

// ErrNoBaseDir reports that no base directory could be resolved.
var ErrNoBaseDir = errors.New("no base directory")

// Paths holds the resolved files for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	LogDir     string
}

// Options selects the app name and dev isolation.
type Options struct {
	AppName string
	DevMode bool
}

// base env keys consulted per GOOS, config first.
var baseEnv = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the running OS and environment.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	env := map[string]string{HomeEnv: os.Getenv(HomeEnv)}
	for _, keys := range baseEnv {
		env[keys[0]] = os.Getenv(keys[0])
		env[keys[1]] = os.Getenv(keys[1])
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appNameFor(opts))
}

func appNameFor(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

// PathsFor resolves paths from explicit inputs. INSYNC_HOME wins over OS defaults.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if keys, ok := baseEnv[goos]; ok {
		if v := strings.TrimSpace(env[keys[0]]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[keys[1]]); v != "" {
			dataBase = v
		}
	}
	if home := strings.TrimSpace(env[HomeEnv]); home != "" {
		configBase, dataBase = home, home
	}
	if configBase == "" || dataBase == "" {
		return Paths{}, ErrNoBaseDir
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}
