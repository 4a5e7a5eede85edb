package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSession(userID int64, buffer int) *Session {
	return &Session{
		userID: userID,
		out:    make(chan Envelope, buffer),
		rooms:  make(map[string]struct{}),
	}
}

func drain(s *Session) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-s.out:
			out = append(out, env)
		default:
			return out
		}
	}
}

// The hub registers prometheus collectors on the default registry, so one
// hub serves every subtest.
func TestHub(t *testing.T) {
	h := NewHub(zap.NewNop())

	t.Run("push with no sessions is a no-op", func(t *testing.T) {
		h.Push(999, "new_notification", nil)
		assert.Zero(t, h.SessionCount(999))
	})

	t.Run("push reaches every session of the user", func(t *testing.T) {
		s1 := testSession(7, 4)
		s2 := testSession(7, 4)
		other := testSession(8, 4)
		h.register(s1)
		h.register(s2)
		h.register(other)
		defer h.unregister(s1)
		defer h.unregister(s2)
		defer h.unregister(other)

		assert.Equal(t, 2, h.SessionCount(7))

		h.Push(7, "new_notification", map[string]int{"id": 1})

		for _, s := range []*Session{s1, s2} {
			got := drain(s)
			require.Len(t, got, 1)
			assert.Equal(t, "new_notification", got[0].Event)
		}
		assert.Empty(t, drain(other), "other users see nothing")
	})

	t.Run("slow session loses events instead of blocking", func(t *testing.T) {
		s := testSession(9, 1)
		h.register(s)
		defer h.unregister(s)

		h.Push(9, "a", nil)
		h.Push(9, "b", nil)

		got := drain(s)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].Event)
	})

	t.Run("broadcast honors rooms and except", func(t *testing.T) {
		s1 := testSession(10, 4)
		s2 := testSession(11, 4)
		outsider := testSession(12, 4)
		h.register(s1)
		h.register(s2)
		h.register(outsider)
		defer h.unregister(s1)
		defer h.unregister(s2)
		defer h.unregister(outsider)

		room := projectRoom(42)
		h.join(s1, room)
		h.join(s2, room)

		h.Broadcast(room, "user_typing", nil, s1)

		assert.Empty(t, drain(s1), "originating session is excluded")
		assert.Len(t, drain(s2), 1)
		assert.Empty(t, drain(outsider))
	})

	t.Run("unregister leaves rooms", func(t *testing.T) {
		s := testSession(13, 4)
		h.register(s)
		room := taskRoom(5)
		h.join(s, room)

		h.unregister(s)

		h.Broadcast(room, "task_updated", nil, nil)
		assert.Empty(t, drain(s))
		assert.Zero(t, h.SessionCount(13))
	})
}
