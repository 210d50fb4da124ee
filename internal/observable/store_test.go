package observable_test

import (
	"testing"

	"github.com/jrsteele09/go-saverr/internal/observable"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateNotifiesSubscribers(t *testing.T) {
	s := observable.NewStore(1)

	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Update(func(v int) int { return v + 1 })
	s.Update(func(v int) int { return v * 10 })
	require.Equal(t, []int{2, 20}, seen)
	require.Equal(t, 20, s.Get())

	unsubscribe()
	unsubscribe()
	s.Update(func(v int) int { return 0 })
	require.Equal(t, []int{2, 20}, seen)
}

func TestStore_ListenerMayReadStore(t *testing.T) {
	s := observable.NewStore("a")
	var got string
	s.Subscribe(func(string) { got = s.Get() })
	s.Update(func(string) string { return "b" })
	require.Equal(t, "b", got)
}

func TestStore_HoldQueuesUntilRelease(t *testing.T) {
	s := observable.NewStore(0)
	var seen []int
	s.Subscribe(func(v int) { seen = append(seen, v) })

	outer := s.Hold()
	inner := s.Hold()
	s.Update(func(v int) int { return 1 })
	s.Update(func(v int) int { return 2 })
	inner()
	require.Empty(t, seen)
	require.Equal(t, 2, s.Get())

	outer()
	outer()
	require.Equal(t, []int{1, 2}, seen)
}

func TestStore_ListenerMayUpdateStore(t *testing.T) {
	s := observable.NewStore(0)
	var seen []int
	s.Subscribe(func(v int) {
		seen = append(seen, v)
		if v == 1 {
			s.Update(func(int) int { return 10 })
		}
	})

	release := s.Hold()
	s.Update(func(int) int { return 1 })
	s.Update(func(int) int { return 2 })
	release()

	require.Equal(t, []int{1, 2, 10}, seen)
	require.Equal(t, 10, s.Get())
}
