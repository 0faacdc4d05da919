package dh

import (
	"encoding/asn1"
	"math/big"
)

// derParams is the DER structure for DH parameters (spec §4.7):
// SEQUENCE { INTEGER p, INTEGER g, INTEGER privateValueLength }.
type derParams struct {
	P                  *big.Int
	G                  *big.Int
	PrivateValueLength int
}

// toDER encodes (p, g) as the fixed DH-parameters DER structure, with
// privateValueLength set to bitlen(p).
func toDER(p, g *big.Int) ([]byte, error) {
	return asn1.Marshal(derParams{
		P:                  p,
		G:                  g,
		PrivateValueLength: p.BitLen(),
	})
}

// fromDER decodes the DH-parameters DER structure and returns (p, g). It
// ignores the encoded privateValueLength: the caller independently checks
// (p, g) against the fixed constants.
func fromDER(data []byte) (p, g *big.Int, err error) {
	var params derParams
	rest, err := asn1.Unmarshal(data, &params)
	if err != nil {
		return nil, nil, errJoinMalformed(err)
	}
	if len(rest) != 0 {
		return nil, nil, errJoinMalformed(errTrailingDER)
	}
	return params.P, params.G, nil
}
