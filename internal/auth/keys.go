package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

func LoadKeyPair(privateKeyPath, publicKeyPath string) (KeyPair, error) {
	privPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("read private key: %w", err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parse private key: %w", err)
	}

	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return KeyPair{}, fmt.Errorf("read public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parse public key: %w", err)
	}

	return KeyPair{Private: priv, Public: pub}, nil
}

// GenerateKeyPair creates an ephemeral RSA key pair. Intended for dev runs
// where no key files are configured; sessions do not survive a restart.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}
