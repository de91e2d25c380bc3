package verify

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tapcard-io/scheduler/internal/httperr"
)

const (
	codeTTL     = 5 * time.Minute
	maxAttempts = 5

	// ResendCooldown throttles code sends per scope+phone. Callers may key
	// downstream work (SMS dedup) on the same window.
	ResendCooldown = time.Minute

	verifiedTTL = 30 * time.Minute

	// viewer last4 guesses per code+ip per window
	last4MaxTries = 5
	last4Window   = time.Hour

	viewerSessionTTL = 24 * time.Hour
)

// Verifier keeps the short-lived verification state in redis: booking
// phone codes, viewer last4 attempt counters, and viewer session tokens.
type Verifier struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Verifier {
	return &Verifier{rdb: rdb}
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func genCode(digits int) string {
	max := big.NewInt(10)
	out := make([]byte, digits)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = byte('0' + n.Int64())
	}
	return string(out)
}

// --------------------------------------------------
// Booking phone verification
// --------------------------------------------------

// StartPhoneVerification issues a 6-digit code for the phone, respecting
// the resend cooldown. The caller enqueues the SMS; only the hash is kept.
func (v *Verifier) StartPhoneVerification(
	ctx context.Context,
	scope string,
	phone string,
) (string, error) {

	coolKey := fmt.Sprintf("pv:cool:%s:%s", scope, phone)
	ok, err := v.rdb.SetNX(ctx, coolKey, 1, ResendCooldown).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", httperr.ErrBusiness("resend_too_soon")
	}

	code := genCode(6)
	dataKey := fmt.Sprintf("pv:data:%s:%s", scope, phone)
	pipe := v.rdb.TxPipeline()
	pipe.HSet(ctx, dataKey, "code", hashCode(code), "attempts", maxAttempts)
	pipe.Expire(ctx, dataKey, codeTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return code, nil
}

// CheckPhoneCode consumes one attempt; on success it marks the phone
// verified for the scope.
func (v *Verifier) CheckPhoneCode(
	ctx context.Context,
	scope string,
	phone string,
	code string,
) error {

	dataKey := fmt.Sprintf("pv:data:%s:%s", scope, phone)
	vals, err := v.rdb.HGetAll(ctx, dataKey).Result()
	if err != nil {
		return err
	}
	if len(vals) == 0 {
		return httperr.ErrBusiness("code_expired")
	}

	attempts, err := v.rdb.HIncrBy(ctx, dataKey, "attempts", -1).Result()
	if err != nil {
		return err
	}
	if attempts < 0 {
		return httperr.ErrBusiness("too_many_attempts")
	}

	if vals["code"] != hashCode(code) {
		return httperr.ErrBusiness("code_mismatch")
	}

	v.rdb.Del(ctx, dataKey)
	return v.rdb.Set(
		ctx,
		fmt.Sprintf("pv:ok:%s:%s", scope, phone),
		1,
		verifiedTTL,
	).Err()
}

// IsPhoneVerified reports whether the phone passed verification for the
// scope within the verification TTL.
func (v *Verifier) IsPhoneVerified(
	ctx context.Context,
	scope string,
	phone string,
) (bool, error) {

	n, err := v.rdb.Exists(ctx, fmt.Sprintf("pv:ok:%s:%s", scope, phone)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ConsumePhoneVerification clears the verified flag after a successful
// booking so one code cannot back multiple bookings.
func (v *Verifier) ConsumePhoneVerification(
	ctx context.Context,
	scope string,
	phone string,
) error {
	return v.rdb.Del(ctx, fmt.Sprintf("pv:ok:%s:%s", scope, phone)).Err()
}

// --------------------------------------------------
// Viewer access (public_code + phone last4)
// --------------------------------------------------

// AllowLast4Attempt counts a guess against the code+ip pair and returns
// the tries remaining; at zero the caller must reject without comparing.
func (v *Verifier) AllowLast4Attempt(
	ctx context.Context,
	publicCode string,
	ip string,
) (int, error) {

	key := fmt.Sprintf("viewer:tries:%s:%s", publicCode, ip)
	n, err := v.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		v.rdb.Expire(ctx, key, last4Window)
	}

	remaining := last4MaxTries - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// IssueViewerSession returns a bearer token granting viewer access to one
// public code for 24 hours.
func (v *Verifier) IssueViewerSession(
	ctx context.Context,
	publicCode string,
	token string,
) error {
	return v.rdb.Set(
		ctx,
		fmt.Sprintf("viewer:session:%s", token),
		publicCode,
		viewerSessionTTL,
	).Err()
}

// ViewerCodeForToken resolves a viewer token back to its public code;
// empty means unknown or expired.
func (v *Verifier) ViewerCodeForToken(
	ctx context.Context,
	token string,
) (string, error) {

	code, err := v.rdb.Get(ctx, fmt.Sprintf("viewer:session:%s", token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}
