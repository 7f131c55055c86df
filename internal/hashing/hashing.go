// Package hashing computes the content hash used for optimistic
// concurrency: SHA-256 over canonicalized metadata plus body.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/taigrr/flint-note/internal/flinterrors"
	"github.com/taigrr/flint-note/internal/types"
)

// recordSep separates the metadata section from the body in the
// canonical byte stream.
const recordSep = 0x1E

// Compute canonicalizes metadata (keys sorted lexicographically, values
// JSON-encoded) followed by 0x1E and the body bytes, and returns the
// hex-encoded SHA-256.
func Compute(metadata types.Metadata, body string) (string, error) {
	h := sha256.New()

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		serialized, err := metadata[k].Serialize()
		if err != nil {
			return "", flinterrors.Wrap(flinterrors.IO, "canonicalize metadata", err)
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(serialized)
		sb.WriteByte('\n')
	}

	h.Write([]byte(sb.String()))
	h.Write([]byte{recordSep})
	h.Write([]byte(body))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify compares a client-supplied hash against the current one and
// returns ConflictStale on mismatch. An empty expected hash skips the
// check; the note store passes the caller's hash through as given, so a
// mutation called without a hash is not checked.
func Verify(current, expected string) error {
	if expected == "" {
		return nil
	}
	if current != expected {
		return flinterrors.New(flinterrors.ConflictStale,
			"content hash mismatch: note was modified since it was read, fetch it again and retry")
	}
	return nil
}
