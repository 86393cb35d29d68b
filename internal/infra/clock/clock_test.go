package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandIsDeterministicPerSeed(t *testing.T) {
	a, b := NewRand(7), NewRand(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestSeededRandInRange(t *testing.T) {
	r, err := NewSeededRand()
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		n := r.IntN(6)
		assert.True(t, n >= 0 && n < 6)
	}
}

func TestRealAfterFuncStops(t *testing.T) {
	fired := make(chan struct{}, 1)
	tm := Real{}.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	assert.True(t, tm.Stop())
	select {
	case <-fired:
		t.Fatal("timer fired after Stop")
	default:
	}
}
