package common

import (
	"context"
	"testing"
	"time"

	"payments/internal/appers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountFromString(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.50", 1250},
		{"12,50", 1250},
		{"0.01", 1},
		{"100", 10000},
		{"  7.5 ", 750},
		{"-10", -1000},
		{"+0.99", 99},
	}
	for _, c := range cases {
		got, err := AmountFromString(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestAmountFromStringErrors(t *testing.T) {
	_, err := AmountFromString("")
	assert.ErrorIs(t, err, appers.ErrFormat)

	_, err = AmountFromString("abc")
	assert.ErrorIs(t, err, appers.ErrFormat)

	_, err = AmountFromString("1.234")
	assert.ErrorIs(t, err, appers.ErrScale)

	_, err = AmountFromString("12345678901234567.00")
	assert.ErrorIs(t, err, appers.ErrPrecision)
}

func TestAmountToString(t *testing.T) {
	assert.Equal(t, "12.50", AmountToString(1250))
	assert.Equal(t, "0.01", AmountToString(1))
	assert.Equal(t, "-10.00", AmountToString(-1000))
}

func TestNextBackoffWithJitter(t *testing.T) {
	for attempt := 0; attempt < 15; attempt++ {
		d := NextBackoffWithJitter(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Minute)
	}
}

func TestSleepCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepCtx(ctx, 5*time.Second)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPgInterval(t *testing.T) {
	assert.Equal(t, "90 seconds", PgInterval(90*time.Second))
}
