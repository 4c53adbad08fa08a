// Package attendqr encodes, decodes and validates the time-limited QR payloads
// used for classroom attendance, and classifies accepted scans. Payloads are
// encrypted with the same shared cipher as quiz tokens: both protocols face the
// same tamper and forgery threat model, so they share one trust boundary.
package attendqr

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/csmht/signlab-api/pkg/blockcipher"
)

// MultiClassCode is the class-code sentinel marking a session that accepts
// scans from any class. Cross-class checking happens downstream against the
// session's bound class set.
const MultiClassCode = "MULTI"

const minFieldCount = 4

// ErrUnparseable covers every decode defect: bad encoding, wrong key, too few
// fields, or a non-numeric timestamp. Callers show a generic "invalid code"
// message and must not distinguish the causes.
var ErrUnparseable = errors.New("unparseable attendance payload")

// Payload is the decoded content of one QR code.
type Payload struct {
	CourseID    string
	SessionCode string
	ClassCode   string
	Timestamp   int64 // unix seconds
	Nonce       string
	MultiClass  bool
}

// Codec encrypts and decrypts attendance payloads under the shared key.
type Codec struct {
	cipher *blockcipher.Cipher
	now    func() time.Time
}

// NewCodec builds a Codec bound to the deployment cipher.
func NewCodec(c *blockcipher.Cipher) *Codec {
	return &Codec{cipher: c, now: time.Now}
}

// Encode joins the fields with '|', appends a short time-derived numeric nonce,
// encrypts and base64-encodes the result.
func (c *Codec) Encode(courseID, sessionCode, classCode string, timestamp int64) (string, error) {
	for _, field := range []string{courseID, sessionCode, classCode} {
		if field == "" || strings.Contains(field, "|") {
			return "", fmt.Errorf("invalid payload field %q", field)
		}
	}

	nonce := c.now().UnixNano() % 10000
	plain := fmt.Sprintf("%s|%s|%s|%d|%04d", courseID, sessionCode, classCode, timestamp, nonce)

	encrypted, err := c.cipher.Encrypt([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt attendance payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decode reverses Encode. Any defect fails closed into ErrUnparseable.
func (c *Codec) Decode(encoded string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, ErrUnparseable
	}

	plain, err := c.cipher.Decrypt(raw)
	if err != nil {
		return Payload{}, ErrUnparseable
	}

	fields := strings.Split(string(plain), "|")
	if len(fields) < minFieldCount {
		return Payload{}, ErrUnparseable
	}

	timestamp, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Payload{}, ErrUnparseable
	}

	payload := Payload{
		CourseID:    fields[0],
		SessionCode: fields[1],
		ClassCode:   fields[2],
		Timestamp:   timestamp,
		MultiClass:  fields[2] == MultiClassCode,
	}
	if len(fields) > minFieldCount {
		payload.Nonce = fields[4]
	}

	return payload, nil
}

// Fresh reports whether a payload timestamp is still inside its validity
// window at the given instant. A timestamp in the future indicates clock skew
// or forgery; both fail closed.
func Fresh(timestamp int64, validFor time.Duration, now time.Time) bool {
	age := now.Unix() - timestamp
	return age >= 0 && age <= int64(validFor.Seconds())
}
