package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata, set by -ldflags at compile time. Unset values fall back to
// what the Go toolchain embedded in the binary.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := currentBuild()
		fmt.Printf("photo-curator %s (%s)\n", info.version, info.goVersion)
		fmt.Printf("  Commit: %s\n", info.commit)
		fmt.Printf("  Built:  %s\n", info.date)
	},
}

type buildInfo struct {
	version   string
	commit    string
	date      string
	goVersion string
}

func currentBuild() buildInfo {
	bi, _ := debug.ReadBuildInfo()
	return resolveBuild(bi)
}

// resolveBuild prefers the -ldflags values and fills the gaps from bi
func resolveBuild(bi *debug.BuildInfo) buildInfo {
	info := buildInfo{version: Version, commit: CommitSHA, date: BuildDate, goVersion: runtime.Version()}
	if bi == nil {
		return info
	}
	if info.version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.commit == "unknown":
			info.commit = s.Value
		case s.Key == "vcs.time" && info.date == "unknown":
			info.date = s.Value
		}
	}
	if bi.GoVersion != "" {
		info.goVersion = bi.GoVersion
	}
	return info
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
