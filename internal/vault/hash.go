package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest is a content hash in "sha256:<hex>" form. The zero value, Absent,
// stands for content that does not exist.
type Digest string

const Absent Digest = ""

const digestPrefix = "sha256:"

// Hash returns the digest of content. Empty content is present, not Absent.
func Hash(content []byte) Digest {
	sum := sha256.Sum256(content)
	return Digest(digestPrefix + hex.EncodeToString(sum[:]))
}

func (d Digest) Present() bool { return d != Absent }

// Short is an abbreviated form for human output.
func (d Digest) Short() string {
	if d == Absent {
		return "absent"
	}
	hexPart := strings.TrimPrefix(string(d), digestPrefix)
	if len(hexPart) > 12 {
		hexPart = hexPart[:12]
	}
	return hexPart
}
