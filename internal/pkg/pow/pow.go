/*
Package pow implements the Proof-of-Work (PoW) mechanism used to slow down automated
account registration.

It manages the generation and validation of nonces and the issuance of single-use
Proof Tokens upon successful validation.
*/
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the Proof Token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is the validity period for the Proof Token issued after successful PoW validation.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period for the challenge Nonce.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	// ErrNonceInvalid is returned for unknown, expired or already consumed nonces.
	ErrNonceInvalid = errors.New("nonce expired or invalid")

	// ErrProofInsufficient is returned when the hash does not meet the difficulty.
	ErrProofInsufficient = errors.New("proof does not meet difficulty requirement")
)

// PoWManager is responsible for managing the lifecycle of PoW challenges and Proof Tokens.
// It is concurrent-safe, using internal maps to store active nonces and tokens.
type PoWManager struct {
	// difficulty is the required number of leading hex zeros of the challenge hash.
	difficulty int

	// nonceStore stores active nonces and their expiration times.
	nonceStore map[string]time.Time

	// tokenStore stores issued Proof Tokens and their expiration times.
	tokenStore map[string]time.Time

	// mu protects concurrent access to nonceStore and tokenStore.
	mu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoWManager creates and initializes a new PoWManager instance.
// It accepts the challenge difficulty and starts a background goroutine to clean up expired entries.
// A difficulty of zero disables the challenge entirely.
func NewPoWManager(difficulty int) *PoWManager {
	mgr := &PoWManager{
		difficulty: difficulty,
		nonceStore: make(map[string]time.Time),
		tokenStore: make(map[string]time.Time),
		stop:       make(chan struct{}),
	}

	go mgr.cleanupExpiredEntries()

	return mgr
}

// Difficulty returns the configured number of leading zeros.
func (m *PoWManager) Difficulty() int {
	return m.difficulty
}

// Enabled reports whether clients must solve a challenge.
func (m *PoWManager) Enabled() bool {
	return m.difficulty > 0
}

// GenerateNonce generates a unique Nonce string for the PoW challenge and stores it for validation.
func (m *PoWManager) GenerateNonce() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.New().String()
	m.nonceStore[nonce] = time.Now().Add(NonceExpiryDuration)
	return nonce
}

// Solve searches for a counter satisfying the difficulty for nonce.
// It is used by tests and tooling; browsers solve the same puzzle client-side.
func Solve(nonce string, difficulty int) string {
	prefix := strings.Repeat("0", difficulty)
	for counter := 0; ; counter++ {
		candidate := strconv.Itoa(counter)
		if strings.HasPrefix(hashHex(nonce, candidate), prefix) {
			return candidate
		}
	}
}

// ValidateProof validates the PoW proof provided by the client.
// It checks if the Nonce is valid and unexpired, and verifies if the SHA256 hash of the
// Nonce + Counter combination meets the difficulty requirement (number of leading zeros).
// If validation succeeds, the nonce is consumed and a temporary Proof Token is returned.
func (m *PoWManager) ValidateProof(nonce, counter string) (string, error) {
	if !strings.HasPrefix(hashHex(nonce, counter), strings.Repeat("0", m.difficulty)) {
		return "", ErrProofInsufficient
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiryTime, ok := m.nonceStore[nonce]
	if !ok || time.Now().After(expiryTime) {
		return "", ErrNonceInvalid
	}

	delete(m.nonceStore, nonce)

	token := uuid.New().String()
	m.tokenStore[token] = time.Now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeProofToken checks whether the request carries a valid Proof Token and,
// if so, invalidates it so it cannot be replayed.
// The Proof Token can be located in the HTTP header (X-PoW-Token) or the URL query parameter (pow_token).
func (m *PoWManager) ConsumeProofToken(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}

	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiryTime, ok := m.tokenStore[token]
	if !ok {
		return false
	}
	delete(m.tokenStore, token)

	return !time.Now().After(expiryTime)
}

// Stop terminates the cleanup goroutine.
func (m *PoWManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// cleanupExpiredEntries periodically cleans up expired entries in both nonceStore and tokenStore.
func (m *PoWManager) cleanupExpiredEntries() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for nonce, expiry := range m.nonceStore {
				if now.After(expiry) {
					delete(m.nonceStore, nonce)
				}
			}
			for token, expiry := range m.tokenStore {
				if now.After(expiry) {
					delete(m.tokenStore, token)
				}
			}
			m.mu.Unlock()
		}
	}
}

func hashHex(nonce, counter string) string {
	hash := sha256.Sum256([]byte(nonce + counter))
	return hex.EncodeToString(hash[:])
}
