package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateCode returns 2n uppercase hex characters built from n bytes of
// crypto/rand, so n=8 yields 64 bits of entropy. Scan tokens must survive
// brute-force guessing at the door; never swap this for math/rand.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GeneratePrefixedCode prepends a fixed tag so entry and exit tokens are
// distinguishable at a glance from the retrieval code.
func GeneratePrefixedCode(prefix string, n int) (string, error) {
	code, err := GenerateCode(n)
	if err != nil {
		return "", err
	}
	return prefix + code, nil
}
