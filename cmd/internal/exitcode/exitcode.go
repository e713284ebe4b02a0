// Package exitcode maps a returned error to one of the process exit codes
// §6 of the specification assigns: 0 success, 1 usage error, 2 unsupported
// feature, 3 invalid input, 4 I/O error.
package exitcode

import (
	"errors"
	"io/fs"

	"github.com/heifgo/heifbox/bmff"
)

// For inspects err (possibly wrapped) and returns the process exit code a
// CLI command should use.
func For(err error) int {
	if err == nil {
		return 0
	}
	var be *bmff.Error
	if errors.As(err, &be) {
		switch be.Kind {
		case bmff.KindUsageError:
			return 1
		case bmff.KindUnsupportedFeature, bmff.KindUnsupportedFiletype:
			return 2
		case bmff.KindInvalidInput, bmff.KindColorProfileDoesNotExist:
			return 3
		default:
			return 4
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return 4
	}
	return 4
}
