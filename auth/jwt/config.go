package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	ES256 SigningMethod = "ES256"
)

// Config configures the JWT token service.
type Config struct {
	// Secret is the HMAC signing key (required for HS* methods).
	Secret string `mapstructure:"secret"`

	// PrivateKey is the RSA or ECDSA private key (required for RS256/ES256).
	PrivateKey any `mapstructure:"-"`

	// PublicKey is the RSA or ECDSA public key for verification.
	// If not set, it is derived from PrivateKey.
	PublicKey any `mapstructure:"-"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// Issuer is the "iss" claim (optional).
	Issuer string `mapstructure:"issuer"`

	// Audience is the "aud" claim (optional).
	Audience []string `mapstructure:"audience"`

	// TTL is the lifetime of issued tokens (default: 5m).
	TTL time.Duration `mapstructure:"ttl"`

	// Leeway tolerates clock skew while parsing (default: 30s).
	Leeway time.Duration `mapstructure:"leeway"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Leeway == 0 {
		c.Leeway = 30 * time.Second
	}
}

// Validate checks required fields based on the signing method.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS512:
		if c.Secret == "" {
			return errors.New("jwt: secret is required for HMAC signing methods")
		}
	case RS256:
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return errors.New("jwt: private key must be *rsa.PrivateKey for RS256")
		}
	case ES256:
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return errors.New("jwt: private key must be *ecdsa.PrivateKey for ES256")
		}
	default:
		return errors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	if c.TTL < 0 {
		return errors.New("jwt: ttl cannot be negative")
	}
	return nil
}

// signingMethod returns the golang-jwt SigningMethod instance.
func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS512:
		return gojwt.SigningMethodHS512
	case RS256:
		return gojwt.SigningMethodRS256
	case ES256:
		return gojwt.SigningMethodES256
	default:
		return gojwt.SigningMethodHS256
	}
}

// signKey returns the key used for signing tokens.
func (c *Config) signKey() any {
	switch c.Method {
	case HS256, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}

// verifyKey returns the key used for verifying tokens.
func (c *Config) verifyKey() any {
	if c.PublicKey != nil {
		return c.PublicKey
	}
	switch pk := c.PrivateKey.(type) {
	case *rsa.PrivateKey:
		return &pk.PublicKey
	case *ecdsa.PrivateKey:
		return &pk.PublicKey
	}
	return []byte(c.Secret)
}
