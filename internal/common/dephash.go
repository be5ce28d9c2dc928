package common

import "encoding/hex"

// ContentHash identifies a file's exact byte contents, as supplied by the
// external content-hash registry (spec.md §6.2). It is opaque to the core:
// 40 lowercase hex characters in the registry's canonical deployment (a git
// blob hash), but the core never assumes a particular digest algorithm
// beyond "fixed-width hex string, equal iff contents are equal".
type ContentHash string

// depHashWidth is 14 hex characters (7 bytes), per spec.md §6.5's contract
// for the dependency-set fingerprint ("14 hex chars").
const depHashWidth = 7

// FoldDependencyHashes combines a translation unit's dependency content
// hashes into the 14-hex-character fingerprint spec.md §6.5 requires for
// on-disk artifact naming. spec.md §9 leaves the exact fold open, fixing
// only two observable properties: order-independence and 14-hex width.
// XOR-folding the raw hash bytes (truncated/repeated to depHashWidth) gives
// both for free and is directly grounded in nocc's own SHA256.XorWith
// (internal/common/sha256-struct.go), which folds a dependency set into a
// single precompiled-header hash the same way.
func FoldDependencyHashes(hashes []ContentHash) string {
	acc := make([]byte, depHashWidth)
	for _, h := range hashes {
		raw, err := hex.DecodeString(string(h))
		if err != nil || len(raw) == 0 {
			continue
		}
		for i := 0; i < depHashWidth; i++ {
			acc[i] ^= raw[i%len(raw)]
		}
	}
	return hex.EncodeToString(acc)
}
