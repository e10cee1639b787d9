// Package version holds build information for codemap.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X codemap/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// DocumentSchema is stamped into every diagram document's metadata.
// Bump it when the JSON shape of a document changes.
const DocumentSchema = 2

const shortCommitLen = 7

// Info returns the version, followed by the short commit when one longer
// than seven characters was stamped in.
func Info() string {
	if Commit == "unknown" || len(Commit) <= shortCommitLen {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit[:shortCommitLen])
}

// Full returns the multi-line version report
func Full() string {
	return fmt.Sprintf("codemap version %s\nCommit: %s\nBuilt: %s\nDocument schema: %d",
		Version, Commit, BuildDate, DocumentSchema)
}
