// Package token defines the callback-token grammar `kind ":" device_id`.
// A token deterministically encodes the intended action and the target
// device and nothing else, so the resolver can reconstruct both fields
// without server-side session state.
package token

import (
	"errors"
	"strconv"
	"strings"
)

type Kind string

const (
	KindOpen   Kind = "open"
	KindIgnore Kind = "ignore"
	// KindSnapshot belongs to the browse flow only; the action resolver
	// rejects it as foreign.
	KindSnapshot Kind = "snapshot"
)

func (k Kind) Valid() bool {
	return k == KindOpen || k == KindIgnore || k == KindSnapshot
}

var ErrMalformed = errors.New("malformed action token")

// Encode serializes a (kind, device) pair. Inputs are assumed valid;
// Decode is the validating side of the pair.
func Encode(k Kind, deviceID int64) string {
	return string(k) + ":" + strconv.FormatInt(deviceID, 10)
}

// Decode parses and validates a token. Any shape other than a known kind,
// a single separator, and a canonical positive decimal id is rejected.
func Decode(s string) (Kind, int64, error) {
	kindPart, idPart, found := strings.Cut(s, ":")
	if !found {
		return "", 0, ErrMalformed
	}

	k := Kind(kindPart)
	if !k.Valid() {
		return "", 0, ErrMalformed
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, ErrMalformed
	}

	// Reject non-canonical spellings ("+7", "007", "7:extra").
	if Encode(k, id) != s {
		return "", 0, ErrMalformed
	}

	return k, id, nil
}
