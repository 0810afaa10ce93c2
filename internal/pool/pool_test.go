package pool

import (
	"runtime"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGetPutPlane_ExactSize(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name string
		size int
	}{
		{"4K", 4096},
		{"64K", 65536},
		{"256K", 262144},
		{"1M", 1048576},
		{"500B", 500},
		{"3000B", 3000},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			b := GetPlane(tt.size)
			c.Assert(len(b), qt.Equals, tt.size)
			PutPlane(b)
		})
	}
}

func TestGetPlane_LargeCapacity(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"bucket0_exact", 4096, 4096},
		{"bucket0_small", 1000, 4096},
		{"bucket1_exact", 65536, 65536},
		{"bucket2_exact", 262144, 262144},
		{"bucket3_exact", 1048576, 1048576},
		{"bucket4_exact", 4194304, 4194304},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			b := GetPlane(tt.size)
			c.Assert(cap(b) >= tt.minCap, qt.IsTrue)
			PutPlane(b)
		})
	}
}

func TestGetPlane_LargerThanBiggestBucket(t *testing.T) {
	c := qt.New(t)
	largeSize := 2 * Size16M
	b := GetPlane(largeSize)
	c.Assert(len(b), qt.Equals, largeSize)
	c.Assert(cap(b) >= largeSize, qt.IsTrue)
	PutPlane(b)
}

func TestGetPlane_ZeroSize(t *testing.T) {
	c := qt.New(t)
	b := GetPlane(0)
	c.Assert(b, qt.IsNil)
}

func TestPutPlane_SmallSlice(t *testing.T) {
	c := qt.New(t)
	small := make([]byte, 100)
	PutPlane(small) // must not panic

	b := GetPlane(Size4K)
	c.Assert(len(b), qt.Equals, Size4K)
	PutPlane(b)
}

func TestPutPlane_Nil(t *testing.T) {
	PutPlane(nil) // must not panic
}

func TestBucketIndex(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		size       int
		wantBucket int
	}{
		{1, 0},
		{Size4K, 0},
		{Size4K + 1, 1},
		{Size64K, 1},
		{Size64K + 1, 2},
		{Size16M, 5},
		{Size16M + 1, 5},
	}
	for _, tt := range tests {
		c.Assert(bucketIndex(tt.size), qt.Equals, tt.wantBucket)
	}
}

func TestReuseAcrossGC(t *testing.T) {
	c := qt.New(t)
	const size = Size4K
	b := GetPlane(size)
	b[0] = 0xAB
	PutPlane(b)

	runtime.GC()

	b2 := GetPlane(size)
	c.Assert(len(b2), qt.Equals, size)
	PutPlane(b2)
}

func TestConcurrentGetPut(t *testing.T) {
	const goroutines = 32
	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				for _, size := range []int{512, 8192, 131072, 2097152} {
					b := GetPlane(size)
					for j := range b {
						b[j] = byte(j)
					}
					PutPlane(b)
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetPlane(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetPlane(Size4K)
		PutPlane(buf)
	}
}
