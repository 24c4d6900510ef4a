// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadWithCLI loads configuration honoring command-line arguments:
//
//	--config PATH      base configuration file
//	--profile NAME     profile overlay (config.NAME.yaml); --env is an alias
//	--set key=value    explicit override, repeatable
//
// Both "--flag value" and "--flag=value" forms are accepted.
func LoadWithCLI(args []string) (*Config, error) {
	var (
		base    string
		profile string
		sets    = map[string]string{}
	)

	for i := 0; i < len(args); i++ {
		flag, value, inline := splitFlag(args[i])
		if !inline {
			switch flag {
			case "--config", "--profile", "--env", "--set":
				if i+1 >= len(args) {
					return nil, fmt.Errorf("flag %s requires a value", flag)
				}
				i++
				value = args[i]
			default:
				continue
			}
		}

		switch flag {
		case "--config":
			base = value
		case "--profile", "--env":
			profile = value
		case "--set":
			key, val, ok := strings.Cut(value, "=")
			if !ok {
				return nil, fmt.Errorf("--set expects key=value, got %q", value)
			}
			sets[key] = val
		}
	}

	var paths []string
	if base != "" {
		paths = append(paths, base)
	}
	if overlay := profileConfigPath(base, profile); overlay != "" {
		paths = append(paths, overlay)
	}
	return loadFrom(paths, sets)
}

func splitFlag(arg string) (flag, value string, inline bool) {
	if !strings.HasPrefix(arg, "--") {
		return arg, "", false
	}
	if flag, value, ok := strings.Cut(arg, "="); ok {
		return flag, value, true
	}
	return arg, "", false
}

// profileConfigPath derives the profile variant of the base path and
// returns it only when the file exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)

	path := filepath.Join(dir, name+"."+profile+ext)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
