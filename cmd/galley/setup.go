package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"galley/internal/config"
	"galley/internal/logutil"
)

// setupLogger builds the command's logger from the persistent flags. The
// returned closer flushes a file sink if one was requested.
func setupLogger(cmd *cobra.Command) (zerolog.Logger, func(), error) {
	level, _ := cmd.Flags().GetString("log-level")
	file, _ := cmd.Flags().GetString("log-file")
	return logutil.New(level, file)
}

// loadConfig resolves configuration for the command: an explicit --config
// path wins, otherwise galley.toml is discovered by walking up from the
// working directory.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.Discover(".")
	return cfg, err
}

type colorMode string

const (
	colorModeAuto colorMode = "auto"
	colorModeOn   colorMode = "on"
	colorModeOff  colorMode = "off"
)

func readColorMode(value string) (colorMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return colorModeAuto, nil
	case "on", "always":
		return colorModeOn, nil
	case "off", "never":
		return colorModeOff, nil
	default:
		return "", fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// useColor resolves the flag against the output: auto means color only
// when stdout is a terminal.
func useColor(cmd *cobra.Command) (bool, error) {
	value, _ := cmd.Flags().GetString("color")
	mode, err := readColorMode(value)
	if err != nil {
		return false, err
	}
	switch mode {
	case colorModeOn:
		return true, nil
	case colorModeOff:
		return false, nil
	default:
		return isTerminal(os.Stdout), nil
	}
}
