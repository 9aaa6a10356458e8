package solana

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// NormalizePublicKey converts an identity-like value into the canonical
// ed25519.PublicKey representation. It is intended to be called exactly once,
// where values enter the system (flags, config, cache records, wallet
// adapters). Everything past that boundary only deals in ed25519.PublicKey.
//
// Supported inputs are base58 strings, []byte, [32]byte, ed25519.PublicKey and
// fmt.Stringer values whose String() is base58. The returned key never aliases
// the input.
func NormalizePublicKey(v interface{}) (ed25519.PublicKey, error) {
	var raw []byte

	switch t := v.(type) {
	case nil:
		return nil, errors.Wrap(ErrInvalidPublicKey, "nil value")
	case ed25519.PublicKey:
		raw = t
	case []byte:
		raw = t
	case [ed25519.PublicKeySize]byte:
		raw = t[:]
	case *[ed25519.PublicKeySize]byte:
		if t == nil {
			return nil, errors.Wrap(ErrInvalidPublicKey, "nil value")
		}
		raw = t[:]
	case string:
		return ParsePublicKey(t)
	case fmt.Stringer:
		return ParsePublicKey(t.String())
	default:
		return nil, errors.Wrapf(ErrInvalidPublicKey, "unsupported type %T", v)
	}

	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "invalid length %d", len(raw))
	}

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, raw)
	return key, nil
}

// ParsePublicKey decodes a base58 encoded public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return nil, errors.Wrap(ErrInvalidPublicKey, "empty value")
	}

	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "invalid base58 %q", s)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "invalid length %d", len(decoded))
	}

	return ed25519.PublicKey(decoded), nil
}

// MustParsePublicKey is ParsePublicKey for package level constants.
func MustParsePublicKey(s string) ed25519.PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}
