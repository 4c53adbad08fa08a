// Package quiztoken implements the stateless timed-quiz token protocol. A token
// is the complete state of one quiz attempt: the server persists nothing when a
// quiz starts, and concurrent start calls cannot race on shared state. The time
// limit is enforced only at verification.
//
// Tokens are not single-use at this layer. Callers enforce single use through
// their own records, typically a locked progress row per (student, step).
package quiztoken

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/csmht/signlab-api/pkg/blockcipher"
)

// DefaultBuffer is the grace allowance added to the nominal time limit. It
// absorbs clock skew and network latency so a submission right at the deadline
// is not unfairly rejected.
const DefaultBuffer = 5 * time.Minute

const fieldCount = 3

// Verification reasons. Handlers present mismatch and expiry identically to
// users so a probing client cannot tell which check failed.
const (
	ReasonMalformed = "malformed"
	ReasonMismatch  = "mismatch"
	ReasonExpired   = "expired"
)

// Verification is the outcome of checking one token.
type Verification struct {
	Valid     bool
	Reason    string
	IssuedAt  time.Time
	Remaining time.Duration
}

// Protocol issues and verifies tokens under one shared cipher key. Possession
// of the key is necessary and sufficient to forge a token, so the key is a
// deployment-wide secret.
type Protocol struct {
	cipher *blockcipher.Cipher
	buffer time.Duration
	now    func() time.Time
}

// New constructs a Protocol. A non-positive buffer falls back to DefaultBuffer.
func New(c *blockcipher.Cipher, buffer time.Duration) *Protocol {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Protocol{cipher: c, buffer: buffer, now: time.Now}
}

// Issue mints a token binding the subject to the current instant and a random
// nonce. Nothing is persisted.
func (p *Protocol) Issue(subjectID string) (string, error) {
	if subjectID == "" || strings.Contains(subjectID, "|") {
		return "", fmt.Errorf("invalid subject id %q", subjectID)
	}

	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	plain := fmt.Sprintf("%s|%d|%s", subjectID, p.now().UnixMilli(), nonce)

	encrypted, err := p.cipher.Encrypt([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(encrypted), nil
}

// Verify checks a token against the expected subject and time limit. It never
// returns an error: every defect fails closed into an invalid Verification.
func (p *Protocol) Verify(token, expectedSubjectID string, limit time.Duration) Verification {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Verification{Reason: ReasonMalformed}
	}

	plain, err := p.cipher.Decrypt(raw)
	if err != nil {
		return Verification{Reason: ReasonMalformed}
	}

	fields := strings.Split(string(plain), "|")
	if len(fields) != fieldCount {
		return Verification{Reason: ReasonMalformed}
	}

	issuedMillis, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Verification{Reason: ReasonMalformed}
	}
	issuedAt := time.UnixMilli(issuedMillis)

	if fields[0] != expectedSubjectID {
		return Verification{Reason: ReasonMismatch, IssuedAt: issuedAt}
	}

	elapsed := p.now().Sub(issuedAt)
	if elapsed > limit+p.buffer {
		return Verification{Reason: ReasonExpired, IssuedAt: issuedAt}
	}

	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return Verification{Valid: true, IssuedAt: issuedAt, Remaining: remaining}
}
