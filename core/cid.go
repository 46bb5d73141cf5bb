package core

import (
	"fmt"
	"regexp"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Algo identifies which digest produced a CID.
type Algo string

const (
	AlgoSHA256 Algo = "sha256"
	AlgoDJB2   Algo = "djb2"
)

// CID is a content identifier of shape cid:<algo>:<hex-digest>.
type CID string

var cidPattern = regexp.MustCompile(`^cid:[a-z0-9]+:[a-f0-9]+$`)

// Valid reports whether c matches the CID wire pattern.
func (c CID) Valid() bool {
	return cidPattern.MatchString(string(c))
}

// Algo returns the algorithm prefix of the CID, or "" if malformed.
func (c CID) Algo() Algo {
	m := cidComponents.FindStringSubmatch(string(c))
	if m == nil {
		return ""
	}
	return Algo(m[1])
}

var cidComponents = regexp.MustCompile(`^cid:([a-z0-9]+):[a-f0-9]+$`)

// newCID builds a CID string from an algorithm name and already-canonical
// bytes. For sha256 the digest is routed through an IPFS multihash and then
// unwrapped back to its raw digest bytes, so the wire CID stays a plain
// `cid:sha256:<64-hex>` string while remaining convertible to a standard
// go-cid value. djb2 has no multihash code point and is hex-encoded
// directly.
func newCID(algo Algo, canonicalBytes []byte) (CID, error) {
	switch algo {
	case AlgoSHA256:
		sum, err := mh.Sum(canonicalBytes, mh.SHA2_256, -1)
		if err != nil {
			return "", fmt.Errorf("multihash sum: %w", err)
		}
		c := cid.NewCidV1(cid.Raw, sum)
		decoded, err := mh.Decode([]byte(c.Hash()))
		if err != nil {
			return "", fmt.Errorf("multihash decode: %w", err)
		}
		return CID(fmt.Sprintf("cid:%s:%x", AlgoSHA256, decoded.Digest)), nil
	case AlgoDJB2:
		return CID(fmt.Sprintf("cid:%s:%x", AlgoDJB2, djb2Sum(canonicalBytes))), nil
	default:
		return "", fmt.Errorf("unknown cid algorithm %q", algo)
	}
}
