package extract

import "crypto/sha256"

// fingerprint is a fixed-length content digest used for exact-duplicate
// detection. Byte-identical images and nothing else share a fingerprint.
type fingerprint [sha256.Size]byte

// dedupSet tracks the fingerprints already emitted within one request. It
// only grows, and it must never be shared across requests: a process-wide
// set would dedup across unrelated users' uploads.
type dedupSet map[fingerprint]struct{}

// seen records the image's fingerprint and reports whether it was already
// present.
func (s dedupSet) seen(data []byte) bool {
	fp := fingerprint(sha256.Sum256(data))
	if _, ok := s[fp]; ok {
		return true
	}
	s[fp] = struct{}{}
	return false
}
