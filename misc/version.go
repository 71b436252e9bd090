// Package misc keeps build time information.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set with -ldflags "-X epubkeep/misc.version=... -X epubkeep/misc.gitHash=..."
var (
	appName = ""
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name derived from executable unless set at
// build time.
func GetAppName() string {
	if appName != "" {
		return appName
	}
	base := filepath.Base(os.Args[0])
	if strings.HasSuffix(base, ".test") || strings.HasSuffix(base, ".test.exe") {
		return "epubkeep"
	}
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" && name != "." {
		return name
	}
	return "epubkeep"
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
