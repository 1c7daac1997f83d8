// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string
	Commit    string
	Modified  bool
	GoVersion string
}

// readBuildInfo combines the ldflags version with the VCS stamp the Go
// toolchain embeds, when present.
func readBuildInfo() buildInfo {
	bi := buildInfo{Version: version}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	bi.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			bi.Commit = s.Value
		case "vcs.modified":
			bi.Modified = s.Value == "true"
		}
	}
	return bi
}

// String renders "research-agent <version>" followed by any known
// commit and toolchain details in parentheses.
func (b buildInfo) String() string {
	var details []string
	if b.Commit != "" {
		c := b.Commit
		if len(c) > 12 {
			c = c[:12]
		}
		if b.Modified {
			c += "-dirty"
		}
		details = append(details, "commit "+c)
	}
	if b.GoVersion != "" {
		details = append(details, b.GoVersion)
	}
	if len(details) == 0 {
		return "research-agent " + b.Version
	}
	return fmt.Sprintf("research-agent %s (%s)", b.Version, strings.Join(details, ", "))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build details",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), readBuildInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
