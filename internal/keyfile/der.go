package keyfile

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
)

var ErrNotSigner = errors.New("keyfile: private key cannot sign")

// MarshalPrivate codifica la clave privada como PKCS#8 DER.
func MarshalPrivate(priv crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal pkcs8: %w", err)
	}
	return der, nil
}

// MarshalPublic codifica la clave pública como X.509 SubjectPublicKeyInfo DER.
func MarshalPublic(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal pkix: %w", err)
	}
	return der, nil
}

// ParsePrivate decodifica PKCS#8 DER. x509 devuelve *rsa.PrivateKey,
// *ecdsa.PrivateKey o ed25519.PrivateKey; todas implementan crypto.Signer.
func ParsePrivate(der []byte) (crypto.Signer, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse pkcs8: %w", err)
	}
	s, ok := k.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%T: %w", k, ErrNotSigner)
	}
	return s, nil
}

// ParsePublic decodifica X.509 SubjectPublicKeyInfo DER.
func ParsePublic(der []byte) (crypto.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse pkix: %w", err)
	}
	return k, nil
}
