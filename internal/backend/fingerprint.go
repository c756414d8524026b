// Package backend implements the freshness and execution contract the
// solver's plan is run against: given a rule firing and the fingerprints of
// its inputs, decide whether to skip re-execution, and record what running
// it produced.
package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"

	"ruleweaver/internal/pattern"
)

// missingPrefix tags a fingerprint for a path that does not exist on disk.
// It differs from any real content hash, so a prerequisite that appears
// after being absent (or disappears after being present) always reads as a
// change rather than silently hashing to the empty string's digest.
const missingPrefix = "missing:"

// FingerprintPaths content-hashes each word as a filesystem path, in the
// order given, and returns one fingerprint per word. A path that does not
// exist yields "missing:<path>" rather than an error, since a terminal
// goal's backing file or a prior step's output may legitimately not exist
// yet on the very first build.
func FingerprintPaths(words []pattern.Word) ([]string, error) {
	out := make([]string, len(words))
	for i, w := range words {
		data, err := os.ReadFile(w)
		if err != nil {
			if os.IsNotExist(err) {
				out[i] = missingPrefix + w
				continue
			}
			return nil, err
		}
		sum := sha256.Sum256(data)
		out[i] = hex.EncodeToString(sum[:])
	}
	return out, nil
}

// RuleKey computes a deterministic identifier for one rule firing: the rule
// id plus the concrete bindings it was matched with. Two firings with the
// same key are the same build step and share freshness state.
func RuleKey(ruleID int, bindings pattern.Bindings) string {
	h := sha256.New()
	writeField(h, []byte{byte(ruleID >> 24), byte(ruleID >> 16), byte(ruleID >> 8), byte(ruleID)})

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	writeCount(h, len(names))
	for _, name := range names {
		writeField(h, []byte(name))
		values := bindings[name]
		writeCount(h, len(values))
		for _, v := range values {
			writeField(h, []byte(v))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// fingerprintSetEqual reports whether two fingerprint lists contain the same
// elements, ignoring order (a rule's declared inputs carry no ordering
// guarantee the backend should depend on).
func fingerprintSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

type hasher interface {
	Write(p []byte) (int, error)
}

func writeField(h hasher, data []byte) {
	n := uint64(len(data))
	prefix := []byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	}
	h.Write(prefix)
	h.Write(data)
}

func writeCount(h hasher, n int) {
	h.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
