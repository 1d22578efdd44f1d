package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := Sign("s3cret", "admin", now.Add(TTL))

	user, err := Verify("s3cret", v, now)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = Verify("other", v, now)
	assert.ErrorIs(t, err, ErrSignature)

	_, err = Verify("s3cret", v, now.Add(TTL))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_RejectsForgedValues(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, v := range []string{"", "admin", "YWRtaW4.9999999999", "YWRtaW4.9999999999.deadbeef"} {
		_, err := Verify("s3cret", v, now)
		assert.Error(t, err, v)
	}

	// Swapping the user keeps the old signature, which no longer matches.
	v := Sign("s3cret", "viewer", now.Add(time.Hour))
	forged := "YWRtaW4" + v[len("dmlld2Vy"):]
	_, err := Verify("s3cret", forged, now)
	assert.ErrorIs(t, err, ErrSignature)
}
