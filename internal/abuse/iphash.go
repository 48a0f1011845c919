// iphash.go -- Salted one-way hashing of client addresses.
//
// Raw addresses never reach storage or logs; everything downstream (rate-limit
// keys, abuse records, log lines) sees only the salted digest. Rotating the
// salt unlinks all prior digests, which also wipes rate-limit history -- that
// is the intended trade.
package abuse

import (
	"crypto/sha256"
	"encoding/hex"
)

// DefaultSalt is used when no salt is configured. It keeps hashing total and
// the service available, but digests are linkable across deployments that
// share it -- set IP_HASH_SALT in production.
const DefaultSalt = "default-salt"

// Hasher produces stable salted digests of client identities.
type Hasher struct {
	salt string
}

// NewHasher returns a Hasher with the given salt; an empty salt selects
// DefaultSalt. The caller decides whether that warrants a warning.
func NewHasher(salt string) Hasher {
	if salt == "" {
		salt = DefaultSalt
	}
	return Hasher{salt: salt}
}

// UsingDefaultSalt reports whether the insecure fallback salt is in force.
func (h Hasher) UsingDefaultSalt() bool {
	return h.salt == DefaultSalt
}

// HashIP returns hex(SHA-256(ip + salt)). Deterministic for a given
// (ip, salt) pair; the salt is never recoverable from the output.
func (h Hasher) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + h.salt))
	return hex.EncodeToString(sum[:])
}
