// honeypot.go -- Per-form honeypot field naming.
package abuse

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
)

// HoneypotField returns the honeypot field name for a form: an email-looking
// field that humans never see (it is hidden by styling) but naive automated
// fillers populate. The name is derived from the form ID alone, so every
// instance agrees on it without shared state and the rendered form and the
// validating handler can't drift apart. xxhash is plenty here -- the name
// only needs to be unpredictable-looking, not cryptographic.
func HoneypotField(formID string) string {
	return fmt.Sprintf("email_%08x", uint32(xxhash.ChecksumString64(formID)))
}
