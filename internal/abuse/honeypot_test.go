// honeypot_test.go -- unit tests for HoneypotField.
package abuse

import (
	"regexp"
	"testing"
)

func TestHoneypotField(t *testing.T) {
	t.Run("stable per form id", func(t *testing.T) {
		if HoneypotField("form-1") != HoneypotField("form-1") {
			t.Error("expected deterministic field name per form")
		}
	})

	t.Run("different forms get different names", func(t *testing.T) {
		if HoneypotField("form-1") == HoneypotField("form-2") {
			t.Error("expected distinct field names for distinct forms")
		}
	})

	t.Run("looks like an email field", func(t *testing.T) {
		got := HoneypotField("form-1")
		if !regexp.MustCompile(`^email_[0-9a-f]{8}$`).MatchString(got) {
			t.Errorf("field name %q does not match email_<8 hex>", got)
		}
	})
}
