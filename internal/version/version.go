// Package version carries build metadata. Release builds override it with
//
//	-ldflags "-X github.com/kailas-cloud/seqsearch/internal/version.Version=v1.0.0"
package version

import "go.uber.org/zap"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Fields returns the build metadata as log fields.
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("commit", Commit),
		zap.String("build_date", Date),
	}
}
