// Package contenthash computes the MD5 content hashes used by the
// incremental build machinery. Hashes are compared for byte equality only;
// MD5 is used as a fast content fingerprint, not for security.
package contenthash

import (
	"crypto/md5"
	"os"
)

// Size is the hash length in bytes.
const Size = md5.Size

// Hash is a fixed-size content fingerprint.
type Hash [Size]byte

// Zero is the all-zero hash, used as "no previous artifact" marker.
var Zero Hash

// Sum hashes a byte buffer.
func Sum(data []byte) Hash {
	return md5.Sum(data)
}

// SumFile hashes the contents of the file at path.
func SumFile(path string) (Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Zero, err
	}
	return Sum(data), nil
}

// Equal reports whether two hashes are byte-identical.
func Equal(a, b Hash) bool {
	return a == b
}

// IsZero reports whether h is the all-zero marker.
func (h Hash) IsZero() bool {
	return h == Zero
}
