package attendqr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csmht/signlab-api/pkg/blockcipher"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := blockcipher.New([]byte("signlab-secret"))
	require.NoError(t, err)
	return NewCodec(c)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := testCodec(t)
	timestamp := time.Now().Unix()

	encoded, err := codec.Encode("PHY101", "S-20260309", "CS2301", timestamp)
	require.NoError(t, err)

	payload, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "PHY101", payload.CourseID)
	require.Equal(t, "S-20260309", payload.SessionCode)
	require.Equal(t, "CS2301", payload.ClassCode)
	require.Equal(t, timestamp, payload.Timestamp)
	require.Len(t, payload.Nonce, 4)
	require.False(t, payload.MultiClass)
}

func TestDecodeDetectsMultiClassSentinel(t *testing.T) {
	codec := testCodec(t)

	encoded, err := codec.Encode("PHY101", "S-20260309", MultiClassCode, time.Now().Unix())
	require.NoError(t, err)

	payload, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.True(t, payload.MultiClass)
}

func TestDecodeFailsClosed(t *testing.T) {
	codec := testCodec(t)

	for _, encoded := range []string{"", "%%%", "bm90IGEgY2lwaGVydGV4dA=="} {
		_, err := codec.Decode(encoded)
		require.ErrorIs(t, err, ErrUnparseable)
	}

	// A payload from a different key must be indistinguishable from garbage.
	other, err := blockcipher.New([]byte("different-secret"))
	require.NoError(t, err)
	foreign, err := NewCodec(other).Encode("PHY101", "S-1", "CS2301", time.Now().Unix())
	require.NoError(t, err)

	_, err = codec.Decode(foreign)
	require.ErrorIs(t, err, ErrUnparseable)
}

func TestEncodeRejectsDelimiterFields(t *testing.T) {
	codec := testCodec(t)

	_, err := codec.Encode("PHY|101", "S-1", "CS2301", time.Now().Unix())
	require.Error(t, err)

	_, err = codec.Encode("PHY101", "", "CS2301", time.Now().Unix())
	require.Error(t, err)
}

func TestFreshBoundaries(t *testing.T) {
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	timestamp := base.Unix()
	validity := 30 * time.Second

	require.True(t, Fresh(timestamp, validity, base.Add(29*time.Second)))
	require.True(t, Fresh(timestamp, validity, base.Add(30*time.Second)))
	require.False(t, Fresh(timestamp, validity, base.Add(31*time.Second)))
	require.False(t, Fresh(timestamp, validity, base.Add(-1*time.Second)), "future timestamps fail closed")
}

func TestClassify(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	policy := Policy{LateAfter: 10 * time.Minute, MakeupAfter: time.Hour}
	classes := []string{"CS2301", "CS2302"}

	cases := []struct {
		name         string
		scan         time.Time
		studentClass string
		multi        bool
		want         Status
	}{
		{"on time", anchor.Add(5 * time.Minute), "CS2301", false, StatusNormal},
		{"late", anchor.Add(20 * time.Minute), "CS2301", false, StatusLate},
		{"makeup", anchor.Add(2 * time.Hour), "CS2301", false, StatusMakeup},
		{"cross class", anchor.Add(5 * time.Minute), "EE2101", true, StatusCrossClass},
		{"cross class wins over lateness", anchor.Add(2 * time.Hour), "EE2101", true, StatusCrossClass},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.scan, anchor, tc.studentClass, classes, tc.multi, policy)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyWithoutThresholds(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	// No thresholds configured: every in-class scan is normal.
	got := Classify(anchor.Add(3*time.Hour), anchor, "CS2301", []string{"CS2301"}, false, Policy{})
	require.Equal(t, StatusNormal, got)
}
