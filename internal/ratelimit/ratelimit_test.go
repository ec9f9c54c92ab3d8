package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AdmitsUpToMax(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 3}, nil)

	for i := 0; i < 3; i++ {
		limited, count, reset := l.Check(42)
		assert.False(t, limited)
		assert.Equal(t, i+1, count)
		assert.Equal(t, 0, reset)
	}

	limited, count, reset := l.Check(42)
	assert.True(t, limited)
	assert.Equal(t, 3, count)
	assert.Greater(t, reset, 0)
}

func TestLimiter_AdminAlwaysBypasses(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 1}, []int64{7})

	for i := 0; i < 5; i++ {
		limited, count, reset := l.Check(7)
		assert.False(t, limited)
		assert.Equal(t, 0, count)
		assert.Equal(t, 0, reset)
	}
}

func TestLimiter_PrunesOldTimestamps(t *testing.T) {
	l := New(Params{Window: 20 * time.Millisecond, MaxRequests: 1}, nil)

	limited, _, _ := l.Check(1)
	assert.False(t, limited)

	limited, _, _ = l.Check(1)
	assert.True(t, limited)

	time.Sleep(30 * time.Millisecond)

	limited, count, _ := l.Check(1)
	assert.False(t, limited)
	assert.Equal(t, 1, count)
}

func TestLimiter_ResetClearsOneUser(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 1}, nil)

	l.Check(1)
	l.Check(2)

	l.Reset(1)

	limited, count, _ := l.Check(1)
	assert.False(t, limited)
	assert.Equal(t, 1, count)

	limited, _, _ = l.Check(2)
	assert.True(t, limited)
}

func TestLimiter_ResetAllClearsEveryUser(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 1}, nil)

	l.Check(1)
	l.Check(2)

	l.ResetAll()

	limited, _, _ := l.Check(1)
	assert.False(t, limited)
	limited, _, _ = l.Check(2)
	assert.False(t, limited)
}

func TestLimiter_SetAdminsIsLive(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 1}, nil)

	l.Check(99)
	limited, _, _ := l.Check(99)
	assert.True(t, limited)

	l.SetAdmins([]int64{99})

	limited, _, _ = l.Check(99)
	assert.False(t, limited)
}

func TestLimiter_SetParamsIsLive(t *testing.T) {
	l := New(Params{Window: time.Minute, MaxRequests: 1}, nil)

	l.Check(5)
	limited, _, _ := l.Check(5)
	assert.True(t, limited)

	l.SetParams(Params{Window: time.Minute, MaxRequests: 10})

	limited, _, _ = l.Check(5)
	assert.False(t, limited)
}
