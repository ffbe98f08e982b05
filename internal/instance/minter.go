package instance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
)

const (
	// EnvInstanceToken is the variable the minted credential is exported
	// under inside the instance (written to the env file and passed to the
	// dev server process).
	EnvInstanceToken = "ORANGE_INSTANCE_TOKEN"

	// EnvTokenTTL overrides DefaultTokenTTL. Go duration string.
	EnvTokenTTL = "ORANGE_TOKEN_TTL"

	// DefaultTokenTTL is the instance credential lifetime.
	DefaultTokenTTL = 24 * time.Hour
)

// CredentialMinter mints instance-scoped bearer credentials. The dev server
// presents the credential on its outbound calls to host-side services.
type CredentialMinter interface {
	Mint(ctx context.Context, instanceID string, ttl time.Duration) (string, error)
}

// StaticMinter derives tokens from a local signing secret. It is the
// development default; deployments with a real token service substitute
// their own CredentialMinter.
type StaticMinter struct {
	secret []byte
}

// NewStaticMinter creates a minter with the given signing secret. An empty
// secret selects a fixed development secret.
func NewStaticMinter(secret string) *StaticMinter {
	if secret == "" {
		secret = "orange-dev-secret"
	}
	return &StaticMinter{secret: []byte(secret)}
}

// Mint returns a token of the form "v1.<instance>.<expiry>.<signature>".
// The expiry is a unix timestamp; the signature is a truncated HMAC-SHA256
// over the instance id and expiry.
func (m *StaticMinter) Mint(_ context.Context, instanceID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	exp := time.Now().Add(ttl).Unix()

	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s:%d", instanceID, exp)
	sig := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("v1.%s.%d.%s", instanceID, exp, sig[:32]), nil
}

// TokenTTL returns the configured credential lifetime.
func TokenTTL() time.Duration {
	v := os.Getenv(EnvTokenTTL)
	if v == "" {
		return DefaultTokenTTL
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logging.Warn("invalid token ttl, using default", "value", v)
		return DefaultTokenTTL
	}
	return d
}
