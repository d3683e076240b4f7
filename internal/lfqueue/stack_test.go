package lfqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segrock/lfslab/internal/hazard"
)

func TestPushPopLIFO(t *testing.T) {
	s := New(hazard.NewDomain())
	require.Nil(t, s.Pop())

	a, b, c := &Node{}, &Node{}, &Node{}
	s.Push(a)
	s.Push(b)
	s.Push(c)
	require.EqualValues(t, 3, s.Len())

	require.Same(t, c, s.Pop())
	require.Same(t, b, s.Pop())
	require.Same(t, a, s.Pop())
	require.Nil(t, s.Pop())
	require.EqualValues(t, 0, s.Len())
}

func TestConcurrentPushPopConservesCount(t *testing.T) {
	s := New(hazard.NewDomain())
	const perGoroutine = 2000
	const goroutines = 16

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nodes := make([]*Node, perGoroutine)
			for j := range nodes {
				nodes[j] = &Node{}
				s.Push(nodes[j])
			}
			for range nodes {
				require.NotNil(t, s.Pop())
			}
		}()
	}
	wg.Wait()
	require.Nil(t, s.Pop())
	require.EqualValues(t, 0, s.Len())
}

func TestPoppedNodeNextIsCleared(t *testing.T) {
	s := New(hazard.NewDomain())
	a, b := &Node{}, &Node{}
	s.Push(a)
	s.Push(b)

	got := s.Pop()
	require.Same(t, b, got)
	require.Nil(t, loadNodePtr(&got.next))
}
