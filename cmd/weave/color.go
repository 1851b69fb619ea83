package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// switchMode is the value of an auto|on|off flag.
type switchMode string

const (
	switchAuto switchMode = "auto"
	switchOn   switchMode = "on"
	switchOff  switchMode = "off"
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return switchAuto, nil
	case "on":
		return switchOn, nil
	case "off":
		return switchOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// enabledFor resolves the mode against f; auto means f is a terminal.
func (m switchMode) enabledFor(f *os.File) bool {
	switch m {
	case switchOn:
		return true
	case switchOff:
		return false
	default:
		return isTerminal(f)
	}
}

func readUIMode(value string) (switchMode, error) {
	return parseSwitch("ui", value)
}

func shouldUseTUI(mode switchMode) bool {
	return mode.enabledFor(os.Stdout)
}

// resolveColor decides whether f gets colored output for the --color value.
// NO_COLOR disables auto detection.
func resolveColor(value string, f *os.File) (bool, error) {
	mode, err := parseSwitch("color", value)
	if err != nil {
		return false, err
	}
	if mode == switchAuto && os.Getenv("NO_COLOR") != "" {
		return false, nil
	}
	return mode.enabledFor(f), nil
}

// applyColor reads --color, configures fatih/color for stdout and reports
// whether stderr should be colored.
func applyColor(cmd *cobra.Command) (stderrColor bool, err error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	stdoutColor, err := resolveColor(value, os.Stdout)
	if err != nil {
		return false, err
	}
	color.NoColor = !stdoutColor
	return resolveColor(value, os.Stderr)
}
