// blocklist.go -- CIDR-based client blocklist.
//
// Checked before any other work on the submission path; a match is a hard
// 403, no scoring. Intended for known bot ranges or datacenter egress, fed
// from configuration.
package abuse

import (
	"log/slog"
	"net"
	"strings"

	"github.com/yl2chen/cidranger"
)

// Blocklist answers membership queries over a fixed set of CIDR ranges.
// Immutable after construction, safe for concurrent use.
type Blocklist struct {
	ranger cidranger.Ranger
}

// NewBlocklist builds a blocklist from CIDR strings. Bare addresses are
// accepted and treated as single-host ranges. Unparseable entries are skipped
// with a warning rather than failing startup -- a typo in one range must not
// take the service down.
func NewBlocklist(cidrs []string) *Blocklist {
	ranger := cidranger.NewPCTrieRanger()
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		entry := c
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			slog.Warn("skipping unparseable blocklist entry", "entry", c, "error", err)
			continue
		}
		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			slog.Warn("skipping blocklist entry", "entry", c, "error", err)
		}
	}
	return &Blocklist{ranger: ranger}
}

// Len reports the number of loaded ranges.
func (b *Blocklist) Len() int {
	return b.ranger.Len()
}

// Contains reports whether ip falls inside any blocked range. Unparseable
// addresses (including the "unknown" sentinel) are not blocked -- absence of
// identity degrades to the other defenses, it does not reject outright.
func (b *Blocklist) Contains(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	contained, err := b.ranger.Contains(parsed)
	return err == nil && contained
}
