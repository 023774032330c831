package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Checksum returns the EIP-55 mixed-case form of a hex address. It is a
// display form only; CanonicalKey stays lower-case.
func Checksum(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	if a == "" {
		return "", fmt.Errorf("empty address")
	}
	a = strings.TrimPrefix(strings.TrimPrefix(a, "0x"), "0X")
	if len(a) != 40 {
		return "", fmt.Errorf("bad hex length: %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		return "", fmt.Errorf("not hex: %w", err)
	}

	lower := strings.ToLower(a)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := []byte(lower)
	for i, ch := range out {
		if ch < 'a' || ch > 'f' {
			continue
		}
		// старший бит ниббла хэша >= 8 → верхний регистр
		if digest[i] >= '8' {
			out[i] = ch - 'a' + 'A'
		}
	}
	return "0x" + string(out), nil
}

// DisplayAddress renders an address for output: checksummed on hex networks,
// untouched otherwise or when the address is not valid hex.
func DisplayAddress(addr string, caseSensitiveNetwork bool) string {
	if caseSensitiveNetwork {
		return addr
	}
	cs, err := Checksum(addr)
	if err != nil {
		return addr
	}
	return cs
}
