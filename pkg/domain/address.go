// Package domain defines the chain-level primitive types shared across the
// service: addresses, blockhashes, transaction signatures, and lamport
// amounts. Parsing functions enforce format invariants at trust boundaries so
// services and stores can assume well-formed values.
package domain

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"

	dErrors "devbank/pkg/domain-errors"
)

const (
	// AddressLen is the byte length of a public key.
	AddressLen = 32
	// BlockhashLen is the byte length of a block reference.
	BlockhashLen = 32
	// SignatureLen is the byte length of a transaction signature.
	SignatureLen = 64
)

// LamportsPerToken is the number of lamports in one whole token.
const LamportsPerToken = 1_000_000_000

// Lamports is an amount of test currency. All balance arithmetic happens in
// lamports; conversion to whole tokens is a display concern.
type Lamports = uint64

// Address is a 32-byte account public key, rendered base58 on the wire.
type Address [AddressLen]byte

// ParseAddress decodes a base58 address and validates its length.
func ParseAddress(s string) (Address, error) {
	var a Address
	if s == "" {
		return a, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return a, dErrors.Wrap(err, dErrors.CodeInvalidInput, "address is not valid base58")
	}
	if len(raw) != AddressLen {
		return a, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("address must decode to %d bytes, got %d", AddressLen, len(raw)))
	}
	copy(a[:], raw)
	if a.IsZero() {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must not be the zero key")
	}
	return a, nil
}

// String renders the address as base58.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is the all-zero key.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler for JSON fields.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON fields.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// NewAddress generates a random address. Devnet only: these keys have no
// corresponding private key and exist purely as account identifiers.
func NewAddress() Address {
	var a Address
	if _, err := rand.Read(a[:]); err != nil {
		panic(fmt.Sprintf("read random address bytes: %v", err))
	}
	return a
}

// Blockhash is an opaque reference to a recent block, rendered base58.
type Blockhash [BlockhashLen]byte

// ParseBlockhash decodes a base58 blockhash and validates its length.
func ParseBlockhash(s string) (Blockhash, error) {
	var b Blockhash
	if s == "" {
		return b, dErrors.New(dErrors.CodeInvalidInput, "blockhash is required")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return b, dErrors.Wrap(err, dErrors.CodeInvalidInput, "blockhash is not valid base58")
	}
	if len(raw) != BlockhashLen {
		return b, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("blockhash must decode to %d bytes, got %d", BlockhashLen, len(raw)))
	}
	copy(b[:], raw)
	return b, nil
}

// String renders the blockhash as base58.
func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

// Signature is a 64-byte transaction signature, rendered base58.
type Signature [SignatureLen]byte

// NewSignature mints a random signature for a devnet transaction. There is no
// signing key behind it; the value only needs to be unique and well-formed.
func NewSignature() Signature {
	var sig Signature
	if _, err := rand.Read(sig[:]); err != nil {
		panic(fmt.Sprintf("read random signature bytes: %v", err))
	}
	return sig
}

// ParseSignature decodes a base58 signature and validates its length.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if s == "" {
		return sig, dErrors.New(dErrors.CodeInvalidInput, "signature is required")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return sig, dErrors.Wrap(err, dErrors.CodeInvalidInput, "signature is not valid base58")
	}
	if len(raw) != SignatureLen {
		return sig, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("signature must decode to %d bytes, got %d", SignatureLen, len(raw)))
	}
	copy(sig[:], raw)
	return sig, nil
}

// String renders the signature as base58.
func (sig Signature) String() string {
	return base58.Encode(sig[:])
}
