package signer

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // rsa-sha1 keeps compatibility with existing key/signature consumers
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AlgRSASHA1   = "rsa-sha1"
	AlgRSASHA256 = "rsa-sha256"
	AlgEd25519   = "ed25519"

	DefaultAlgorithm = AlgRSASHA1
)

// Scheme binds a key type to a stateless signing primitive. Every call to
// Method.Sign is independent, so one key can sign from many goroutines.
type Scheme struct {
	Name   string
	Method jwt.SigningMethod

	generate func(r io.Reader) (crypto.Signer, error)
	accepts  func(pub crypto.PublicKey) bool
	sigSize  func(pub crypto.PublicKey) int
}

func rsaScheme(name string, m jwt.SigningMethod, bits int) *Scheme {
	return &Scheme{
		Name:   name,
		Method: m,
		generate: func(r io.Reader) (crypto.Signer, error) {
			return rsa.GenerateKey(r, bits)
		},
		accepts: func(pub crypto.PublicKey) bool {
			k, ok := pub.(*rsa.PublicKey)
			return ok && k.N.BitLen() >= bits
		},
		sigSize: func(pub crypto.PublicKey) int {
			if k, ok := pub.(*rsa.PublicKey); ok {
				return k.Size()
			}
			return 0
		},
	}
}

var schemes = map[string]*Scheme{
	AlgRSASHA1:   rsaScheme(AlgRSASHA1, SigningMethodRS1, 1024),
	AlgRSASHA256: rsaScheme(AlgRSASHA256, jwt.SigningMethodRS256, 2048),
	AlgEd25519: {
		Name:   AlgEd25519,
		Method: jwt.SigningMethodEdDSA,
		generate: func(r io.Reader) (crypto.Signer, error) {
			_, priv, err := ed25519.GenerateKey(r)
			return priv, err
		},
		accepts: func(pub crypto.PublicKey) bool {
			_, ok := pub.(ed25519.PublicKey)
			return ok
		},
		sigSize: func(crypto.PublicKey) int { return ed25519.SignatureSize },
	},
}

// LookupScheme resolves an algorithm name; blank means DefaultAlgorithm.
func LookupScheme(name string) (*Scheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultAlgorithm
	}
	s, ok := schemes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownAlgorithm, name, strings.Join(Algorithms(), ", "))
	}
	return s, nil
}

// Algorithms lists the supported algorithm names, sorted.
func Algorithms() []string {
	out := make([]string, 0, len(schemes))
	for k := range schemes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SigningMethodRS1 is RSASSA-PKCS1-v1_5 over SHA-1 ("SHA1withRSA").
// jwt only ships SHA-2 variants, so the legacy method is registered here.
var SigningMethodRS1 jwt.SigningMethod = &signingMethodRS1{}

func init() {
	jwt.RegisterSigningMethod(SigningMethodRS1.Alg(), func() jwt.SigningMethod { return SigningMethodRS1 })
}

type signingMethodRS1 struct{}

func (*signingMethodRS1) Alg() string { return "RS1" }

func (*signingMethodRS1) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("RS1 sign expects *rsa.PrivateKey: %w", jwt.ErrInvalidKeyType)
	}
	h := sha1.Sum([]byte(signingString)) //nolint:gosec
	return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, h[:])
}

func (*signingMethodRS1) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("RS1 verify expects *rsa.PublicKey: %w", jwt.ErrInvalidKeyType)
	}
	h := sha1.Sum([]byte(signingString)) //nolint:gosec
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, h[:], sig); err != nil {
		return fmt.Errorf("%w: %v", jwt.ErrSignatureInvalid, err)
	}
	return nil
}
