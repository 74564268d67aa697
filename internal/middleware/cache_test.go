package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureWriterForwardsFullBodyButBuffersToLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	body := `{"seats":[1,2,3,4,5,6,7]}`
	n, err := cw.Write([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, len(body), n)

	// The client always receives the complete response.
	assert.Equal(t, body, rec.Body.String())
	// The capture buffer holds at most the limit and the true size is
	// tracked so the store decision can detect the overflow.
	assert.Equal(t, body[:10], cw.buf.String())
	assert.Equal(t, int64(len(body)), cw.size)
}

func TestOversizedResponseIsNeverStored(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}
	_, err := cw.Write([]byte(`{"seats":[1,2,3,4,5,6,7]}`))
	require.NoError(t, err)

	// A truncated buffer replayed on a HIT would be invalid JSON; the
	// overflowing capture must be skipped, not stored as a prefix.
	assert.False(t, storable(cw, 10))
}

func TestOverflowAcrossWritesIsNeverStored(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	// First write lands exactly on the limit; the overflow arrives in a
	// later chunk and must still disqualify the capture.
	_, err := cw.Write([]byte(`{"seats":[`))
	require.NoError(t, err)
	_, err = cw.Write([]byte(`1,2]}`))
	require.NoError(t, err)

	assert.Equal(t, `{"seats":[1,2]}`, rec.Body.String())
	assert.Equal(t, int64(15), cw.size)
	assert.False(t, storable(cw, 10))
}

func TestStorableWithinLimitAnd200Only(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 1024}
	_, err := cw.Write([]byte(`{"seats":[]}`))
	require.NoError(t, err)

	assert.True(t, storable(cw, 1024))
	assert.True(t, storable(cw, 0), "zero limit disables the size check")

	cw.status = http.StatusConflict
	assert.False(t, storable(cw, 1024), "only 200 responses are cacheable")
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"totalSeats":3}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, _, _, ok := decodePayload([]byte("short"))
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 255, 255, 255, 255})
	assert.False(t, ok)
}
