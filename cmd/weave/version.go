package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"weave/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show weave build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "include every recorded build field")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

// versionReport is the build stamp as printed by the version command. Empty
// fields are not requested.
type versionReport struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	if _, err := applyColor(cmd); err != nil {
		return err
	}
	flags := cmd.Flags()
	full, _ := flags.GetBool("full")
	hash, _ := flags.GetBool("hash")
	date, _ := flags.GetBool("date")
	format, _ := flags.GetString("format")

	report := newVersionReport(hash || full, date || full)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty":
		report.writePretty(cmd.OutOrStdout())
		return nil
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func newVersionReport(withHash, withDate bool) versionReport {
	r := versionReport{Tool: "weave", Version: strings.TrimSpace(version.Version)}
	if r.Version == "" {
		r.Version = "dev"
	}
	if withHash {
		r.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if withDate {
		r.BuildDate = valueOrUnknown(version.BuildDate)
	}
	return r
}

func (r versionReport) writePretty(out io.Writer) {
	if r.GitCommit == "" && r.BuildDate == "" {
		fmt.Fprintln(out, version.String())
		return
	}
	fmt.Fprintf(out, "weave %s\n", version.Colored())
	if r.GitCommit != "" {
		fmt.Fprintf(out, "commit: %s\n", r.GitCommit)
	}
	if r.BuildDate != "" {
		fmt.Fprintf(out, "built:  %s\n", r.BuildDate)
	}
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
