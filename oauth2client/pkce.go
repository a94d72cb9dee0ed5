package oauth2client

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/oauth2"
)

// Code verifier length limits from RFC 7636.
const (
	MinVerifierLength = 43
	MaxVerifierLength = 128
)

// unreserved characters allowed in a code verifier.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// PKCECodes holds a code verifier and its S256 challenge.
type PKCECodes struct {
	CodeVerifier  string
	CodeChallenge string
}

// GeneratePKCECodes generates a random code verifier and derives its challenge.
func GeneratePKCECodes() (*PKCECodes, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	return &PKCECodes{
		CodeVerifier:  verifier,
		CodeChallenge: CodeChallenge(verifier),
	}, nil
}

// GenerateCodeVerifier returns a cryptographically random verifier of random length
// between MinVerifierLength and MaxVerifierLength, drawn from the unreserved set.
func GenerateCodeVerifier() (string, error) {
	span := big.NewInt(MaxVerifierLength - MinVerifierLength + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("oauth2client: failed to generate verifier length: %w", err)
	}
	length := MinVerifierLength + int(n.Int64())

	charsetLen := big.NewInt(int64(len(verifierCharset)))
	verifier := make([]byte, length)
	for i := range verifier {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("oauth2client: failed to generate verifier: %w", err)
		}
		verifier[i] = verifierCharset[idx.Int64()]
	}

	return string(verifier), nil
}

// CodeChallenge derives the S256 challenge: the unpadded URL-safe base64 encoding of the
// verifier's SHA-256 digest. The result is always 43 characters long.
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
