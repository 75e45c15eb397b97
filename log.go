package preview

import (
	"fmt"
	"os"
)

// logf prints a package-prefixed message to stderr. Used for degraded
// renderers, resource failures, and debug stats; never for control flow.
func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[preview] "+format+"\n", args...)
}
