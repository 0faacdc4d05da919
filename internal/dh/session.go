package dh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// AgreementState is the DH session's lifecycle position (spec §3).
type AgreementState int

const (
	// Initialized means a local keypair exists but no peer material has
	// been accepted yet.
	Initialized AgreementState = iota
	// Finalized means a peer's public value has been accepted and
	// shared_secret()/Decrypt are usable.
	Finalized
)

// Sentinels delimiting the hex-encoded public key section of a session's
// encoded material (spec §4.6 step 2).
const (
	pubBegin = "---BPUB---"
	pubEnd   = "---EPUB---"
)

const pemHeader = "-----BEGIN DH PARAMETERS-----"
const pemFooter = "-----END DH PARAMETERS-----"

// Internal-only error kinds from spec §7, mapped to the wire-visible
// IOError by the dispatcher; they are distinguished here only for tests
// and logging.
var (
	ErrParamMismatch = errors.New("dh: parameter mismatch")
	ErrKeyRejected   = errors.New("dh: peer public value rejected")
	ErrCryptoInit    = errors.New("dh: crypto initialization failed")
	ErrNotFinalized  = errors.New("dh: session not finalized")
)

// Session is one side of a Diffie-Hellman key agreement over the fixed
// parameters in params.go (spec §4.6).
type Session struct {
	state AgreementState

	x *big.Int // local private value
	y *big.Int // local public value, g^x mod p

	peerY        *big.Int
	sharedSecret []byte
}

// Construct generates a local keypair over the fixed (P, G) parameters and
// returns a session in the Initialized state.
func Construct() (*Session, error) {
	// x is drawn from [2, p-2]; reject 0/1 and p-1 as degenerate private
	// values even though a uniform sample over that range is vanishingly
	// unlikely to land on them.
	upper := new(big.Int).Sub(P, big.NewInt(3))
	x, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	x.Add(x, big.NewInt(2))

	y := new(big.Int).Exp(G, x, P)

	return &Session{state: Initialized, x: x, y: y}, nil
}

// State reports the session's current lifecycle position.
func (s *Session) State() AgreementState { return s.state }

// EncodedMaterial produces this session's wire representation: the fixed
// DH parameters PEM-framed, followed by the local public value hex-framed
// by the BPUB/EPUB sentinels (spec §4.6 step 2).
func (s *Session) EncodedMaterial() (string, error) {
	der, err := toDER(P, G)
	if err != nil {
		return "", fmt.Errorf("dh: encode parameters: %w", err)
	}
	params := toPEM(der, pemHeader, pemFooter)
	pub := hex.EncodeToString(s.y.Bytes())
	return params + "\n" + pubBegin + pub + pubEnd, nil
}

// Finalize ingests a peer's encoded material (spec §4.6 step 3): it
// validates the peer advertised the same fixed parameters, parses the
// peer's public value, and advances the session to Finalized.
func (s *Session) Finalize(message string) error {
	idx := strings.Index(message, pubBegin)
	if idx < 0 {
		return fmt.Errorf("%w: missing %s sentinel", ErrMalformed, pubBegin)
	}

	pemParams := message[:idx]
	pubSection := message[idx:]

	peerP, peerG, err := parsePeerParams(pemParams)
	if err != nil {
		return err
	}
	if peerP.Cmp(P) != 0 || peerG.Cmp(G) != 0 {
		return ErrParamMismatch
	}

	peerY, err := parsePeerPublic(pubSection)
	if err != nil {
		return err
	}

	// Reject the degenerate public values 0, 1, and p-1: none yield a
	// secret that depends on the peer's private exponent.
	one := big.NewInt(1)
	pMinusOne := new(big.Int).Sub(P, one)
	if peerY.Cmp(one) <= 0 || peerY.Cmp(pMinusOne) >= 0 {
		return ErrKeyRejected
	}

	secret := new(big.Int).Exp(peerY, s.x, P)
	s.peerY = peerY
	s.sharedSecret = leftPad(secret.Bytes(), (P.BitLen()+7)/8)
	s.state = Finalized
	return nil
}

func parsePeerParams(pemParams string) (p, g *big.Int, err error) {
	der, err := fromPEM(pemParams, pemHeader, pemFooter)
	if err != nil {
		return nil, nil, err
	}
	return fromDER(der)
}

func parsePeerPublic(pubSection string) (*big.Int, error) {
	if !strings.HasPrefix(pubSection, pubBegin) {
		return nil, fmt.Errorf("%w: public section missing %s prefix", ErrMalformed, pubBegin)
	}
	rest := pubSection[len(pubBegin):]

	end := strings.Index(rest, pubEnd)
	if end < 0 {
		return nil, fmt.Errorf("%w: public section missing %s suffix", ErrMalformed, pubEnd)
	}
	hexY := rest[:end]

	// Strip line feeds; tolerate whatever trails after ---EPUB--- (spec §9
	// open question: the source tolerates trailing peer data).
	hexY = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, hexY)

	y, ok := new(big.Int).SetString(hexY, 16)
	if !ok {
		return nil, fmt.Errorf("%w: public value is not valid hex", ErrMalformed)
	}
	return y, nil
}

// SharedSecret returns the big-endian shared secret, of length
// ceil(bits(p)/8). It is only valid once the session is Finalized.
func (s *Session) SharedSecret() ([]byte, error) {
	if s.state != Finalized {
		return nil, ErrNotFinalized
	}
	return s.sharedSecret, nil
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
