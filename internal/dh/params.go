// Package dh implements the Diffie-Hellman half of the GSI key-agreement
// handshake (spec §4.6): a session negotiates a shared secret over a fixed
// 512-bit safe prime, then uses it to decrypt a peer-supplied authenticator
// payload. The broader GSI handshake (signed X.509 challenges) is out of
// scope; this package only covers the DH primitive and its PEM/DER framing.
package dh

import (
	"math/big"
)

// primeHex is the fixed 512-bit safe prime p (spec §6). Both peers in a
// handshake must agree on this exact value, or finalize fails with
// ErrParamMismatch.
const primeHex = "a8379d6fffe863a0b1470c26dd1a450be2039af083b1ba5bfa1d2f5b2a890802" +
	"d8c4d4668d148d35bb24b1af1ad375c7c03b61aa853f5669aef267da20875d93"

// generator is g = 2 (spec §6).
const generator = 2

// privateValueLength is the DER-encoded "bitlen(p)" field: 512 (spec §6).
const privateValueLength = 512

// P and G are the parsed fixed DH parameters, computed once at init.
var (
	P = mustParsePrime(primeHex)
	G = big.NewInt(generator)
)

func mustParsePrime(hexStr string) *big.Int {
	p, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		panic("dh: fixed prime constant is not valid hex")
	}
	return p
}
