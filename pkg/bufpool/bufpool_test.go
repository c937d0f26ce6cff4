package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsRequestedLength(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, SmallSize, SmallSize + 1, MediumSize, LargeSize} {
		buf := Get(size)
		assert.Len(t, buf, size)
		Put(buf)
	}
}

func TestGetOversizedAllocatesDirectly(t *testing.T) {
	t.Parallel()

	buf := Get(LargeSize + 1)
	assert.Len(t, buf, LargeSize+1)
	// capacity matches no tier, so Put is a no-op
	Put(buf)
}

func TestPutNilIsSafe(t *testing.T) {
	t.Parallel()

	Put(nil)
}

func TestReuseRoundTrip(t *testing.T) {
	buf := Get(100)
	assert.GreaterOrEqual(t, cap(buf), SmallSize)
	Put(buf)

	again := Get(50)
	assert.Len(t, again, 50)
	Put(again)
}
