package expense

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	inviteSalt = []byte("kampus.core.expense.invite")
	NowFunc    = time.Now // mockable

	// errors
	ErrInvalidInvite = errors.New("invalid invite token")
	ErrInviteExpired = errors.New("invite token expired")
)

// Inviter makes and verifies group invite tokens of the form "<group>.<day>-<signature>".
type Inviter struct {
	secret  []byte
	timeout time.Duration
}

func NewInviter(secretKey string, timeout time.Duration) *Inviter {
	return &Inviter{secret: []byte(secretKey), timeout: timeout}
}

// MakeToken generates an invite token for the given group.
func (inv *Inviter) MakeToken(groupID string) string {
	gid := base64.RawURLEncoding.EncodeToString([]byte(groupID))
	return gid + "." + inv.makeTokenWithTimestamp(groupID, numDaysSince2001(NowFunc()))
}

// VerifyToken checks that the token has not been tampered with and is within the timeout,
// and returns the group it invites to.
func (inv *Inviter) VerifyToken(token string) (string, error) {
	dot := strings.IndexByte(token, '.')
	if dot <= 0 {
		return "", ErrInvalidInvite
	}
	idBytes, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return "", ErrInvalidInvite
	}
	groupID, rest := string(idBytes), token[dot+1:]

	parts := strings.SplitN(rest, "-", 2)
	if len(parts) < 2 {
		return "", ErrInvalidInvite
	}
	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidInvite
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return "", ErrInvalidInvite
	}

	if subtle.ConstantTimeCompare([]byte(inv.makeTokenWithTimestamp(groupID, ts)), []byte(rest)) == 0 {
		return "", ErrInvalidInvite
	}
	if (numDaysSince2001(NowFunc()) - ts) > int(inv.timeout/(24*time.Hour)) {
		return "", ErrInviteExpired
	}
	return groupID, nil
}

func (inv *Inviter) makeTokenWithTimestamp(groupID string, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, inv.sign(groupID+strconv.Itoa(ts)))
}

func (inv *Inviter) sign(val string) string {
	key := sha256.Sum256(append(append([]byte{}, inviteSalt...), inv.secret...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write([]byte(val))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
