package dh

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blowfish"
)

// Internal-only error kinds for the decrypt step (spec §7).
var (
	ErrBadPadding           = errors.New("dh: bad padding")
	ErrBadBlockSize         = errors.New("dh: ciphertext is not a multiple of the block size")
	ErrAlgorithmUnsupported = errors.New("dh: unsupported cipher algorithm")
)

// Decrypt implements spec §4.6 step 4: it derives a symmetric key from the
// first blockSize bytes of the session's shared secret, decrypts
// ciphertext under cipherSpec with an all-zero IV, and strips PKCS5
// padding unless cipherSpec names NoPadding.
//
// keySpec names the key algorithm (only "Blowfish" is supported); cipherSpec
// is a "<algorithm>/<mode>/<padding>" string, e.g.
// "Blowfish/CBC/PKCS5Padding" or "Blowfish/CBC/NoPadding".
func (s *Session) Decrypt(cipherSpec, keySpec string, blockSize int, ciphertext []byte) ([]byte, error) {
	secret, err := s.SharedSecret()
	if err != nil {
		return nil, err
	}
	if len(secret) < blockSize {
		return nil, fmt.Errorf("%w: shared secret shorter than block size", ErrBadBlockSize)
	}
	if len(ciphertext)%blockSize != 0 || len(ciphertext) == 0 {
		return nil, ErrBadBlockSize
	}

	if !strings.EqualFold(keySpec, "Blowfish") {
		return nil, fmt.Errorf("%w: key algorithm %q", ErrAlgorithmUnsupported, keySpec)
	}

	parts := strings.Split(cipherSpec, "/")
	if len(parts) != 3 || !strings.EqualFold(parts[0], "Blowfish") || !strings.EqualFold(parts[1], "CBC") {
		return nil, fmt.Errorf("%w: cipher spec %q", ErrAlgorithmUnsupported, cipherSpec)
	}
	padding := parts[2]

	block, err := blowfish.NewCipher(secret[:blockSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlgorithmUnsupported, err)
	}

	iv := make([]byte, blockSize)
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	if strings.EqualFold(padding, "NoPadding") {
		return plaintext, nil
	}
	return stripPKCS5Padding(plaintext, blockSize)
}

func stripPKCS5Padding(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-padLen], nil
}
