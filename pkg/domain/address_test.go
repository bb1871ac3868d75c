package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "devbank/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "addresses must be valid base58 encodings of exactly 32 non-zero bytes".
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid base58", func(t *testing.T) {
		_, err := ParseAddress("not-base58-0OIl")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("abc")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero key", func(t *testing.T) {
		zero := Address{}
		_, err := ParseAddress(zero.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round-trips a generated address", func(t *testing.T) {
		addr := NewAddress()
		parsed, err := ParseAddress(addr.String())
		require.NoError(t, err)
		assert.Equal(t, addr, parsed)
	})
}

func TestSignature_RoundTrip(t *testing.T) {
	sig := NewSignature()
	parsed, err := ParseSignature(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)
}

func TestSignature_Uniqueness(t *testing.T) {
	seen := make(map[Signature]struct{})
	for range 100 {
		sig := NewSignature()
		_, dup := seen[sig]
		require.False(t, dup, "minted signatures must not repeat")
		seen[sig] = struct{}{}
	}
}

func TestAddress_JSONRoundTrip(t *testing.T) {
	addr := NewAddress()

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, addr, decoded)
}

func TestParseBlockhash(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseBlockhash("")
		require.Error(t, err)
	})

	t.Run("accepts 32-byte value", func(t *testing.T) {
		var h Blockhash
		for i := range h {
			h[i] = byte(i + 1)
		}
		parsed, err := ParseBlockhash(h.String())
		require.NoError(t, err)
		assert.Equal(t, h, parsed)
	})
}
