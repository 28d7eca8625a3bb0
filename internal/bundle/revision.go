package bundle

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// UnknownRevision is recorded when no source revision can be determined.
const UnknownRevision = "unknown"

// Revision returns the current git commit of the working directory, or
// UnknownRevision when git is unavailable or this is not a repository.
func Revision(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", "rev-parse", "HEAD").Output()
	if err != nil {
		return UnknownRevision
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return UnknownRevision
	}
	return rev
}
