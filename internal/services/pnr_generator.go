package services

import (
	"crypto/rand"
	"fmt"
)

const (
	pnrPrefix      = "PNR-"
	pnrCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pnrTokenLength = 8
)

// PNRGenerator produces booking reference strings of the form
// PNR-XXXXXXXX (8 uppercase alphanumeric characters) from a cryptographic
// random source. Tokens carry no relation to booking ids, so booking volume
// cannot be inferred from a PNR. Uniqueness is enforced at insert time; the
// commit path regenerates on collision.
type PNRGenerator struct{}

// NewPNRGenerator creates a new PNRGenerator
func NewPNRGenerator() *PNRGenerator {
	return &PNRGenerator{}
}

// Generate returns a new PNR candidate
func (g *PNRGenerator) Generate() (string, error) {
	token := make([]byte, pnrTokenLength)
	buf := make([]byte, 1)

	for i := 0; i < pnrTokenLength; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		// Reject bytes outside the largest multiple of the charset size to
		// keep the character distribution uniform.
		if buf[0] >= byte(256-256%len(pnrCharset)) {
			continue
		}
		token[i] = pnrCharset[int(buf[0])%len(pnrCharset)]
		i++
	}

	return pnrPrefix + string(token), nil
}
