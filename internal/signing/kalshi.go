package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strconv"
	"strings"
)

// Kalshi authentication header names.
const (
	KalshiKeyHeader       = "KALSHI-ACCESS-KEY"
	KalshiSignatureHeader = "KALSHI-ACCESS-SIGNATURE"
	KalshiTimestampHeader = "KALSHI-ACCESS-TIMESTAMP"
)

// KalshiSigner signs Kalshi API requests with the account's RSA key
// using PSS padding over SHA-256. It is stateless after construction.
type KalshiSigner struct {
	keyID      string
	privateKey *rsa.PrivateKey
}

// NewKalshiSigner parses the PEM-encoded private key and returns a
// ready signer. Missing or malformed key material is a
// ConfigurationError, raised here so it never reaches the network.
func NewKalshiSigner(keyID, privateKeyPEM string) (*KalshiSigner, error) {
	if keyID == "" {
		return nil, newConfigError("kalshi", "KALSHI_API_KEY_ID is empty")
	}

	if privateKeyPEM == "" {
		return nil, newConfigError("kalshi", "KALSHI_PRIVATE_KEY_PEM is empty")
	}

	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, newConfigError("kalshi", "private key is not valid PEM")
	}

	var rsaKey *rsa.PrivateKey
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		var ok bool
		rsaKey, ok = key.(*rsa.PrivateKey)
		if !ok {
			return nil, newConfigError("kalshi", "private key is not RSA")
		}
	} else {
		// Older exports use PKCS#1.
		rsaKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, newConfigError("kalshi", "cannot parse RSA private key")
		}
	}

	return &KalshiSigner{
		keyID:      keyID,
		privateKey: rsaKey,
	}, nil
}

// CanonicalMessage builds the string that gets signed: the millisecond
// timestamp, HTTP method and request path concatenated in that order.
// Any query string is stripped from the path first.
func CanonicalMessage(timestampMillis int64, method, path string) string {
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}

	return strconv.FormatInt(timestampMillis, 10) + method + path
}

// Headers signs the request described by (timestampMillis, method,
// path) and returns the full authentication header set. The timestamp
// sent in the header is byte-identical to the one signed: a signature
// produced for one timestamp is not valid for any other.
func (s *KalshiSigner) Headers(timestampMillis int64, method, path string) (map[string]string, error) {
	if method == "" || path == "" {
		return nil, newSignatureError("method and path are required")
	}

	message := CanonicalMessage(timestampMillis, method, path)
	digest := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, newSignatureError("sign request: " + err.Error())
	}

	kalshiSignaturesTotal.Inc()

	return map[string]string{
		KalshiKeyHeader:       s.keyID,
		KalshiSignatureHeader: base64.StdEncoding.EncodeToString(sig),
		KalshiTimestampHeader: strconv.FormatInt(timestampMillis, 10),
	}, nil
}

// PublicKey exposes the verification half of the key for tests.
func (s *KalshiSigner) PublicKey() *rsa.PublicKey {
	return &s.privateKey.PublicKey
}
