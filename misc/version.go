// Package misc keeps build time information.
package misc

const appName = "flexcss"

// Set by the linker: -X flexcss/misc.version=... -X flexcss/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name used for logs, reports and temporary files.
func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
