package resource

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestInsertFindErase(t *testing.T) {
	s := New()
	id := uuid.New()
	s.Insert(&Resource{ID: id, Type: TypeSender, Data: map[string]any{"label": "a"}})

	r, err := s.Find(id, TypeSender)
	require.NoError(t, err)
	require.Equal(t, id, r.ID)

	require.NoError(t, s.Erase(id))
	_, err = s.Find(id, TypeSender)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVersionMonotonicity(t *testing.T) {
	s := New()
	id := uuid.New()
	r := s.Insert(&Resource{ID: id, Type: TypeSender, Data: 0})
	last := r.Version

	for i := 0; i < 50; i++ {
		err := s.Modify(id, func(data interface{}) error { return nil })
		require.NoError(t, err)
		r, err := s.Find(id, TypeSender)
		require.NoError(t, err)
		require.True(t, r.Version.After(last), "version must strictly increase")
		last = r.Version
	}
}

func TestModifyAbortsOnError(t *testing.T) {
	s := New()
	id := uuid.New()
	s.Insert(&Resource{ID: id, Type: TypeSender, Data: 0})
	before, _ := s.Find(id, TypeSender)

	err := s.Modify(id, func(data interface{}) error { return require.AnError })
	require.Error(t, err)

	after, _ := s.Find(id, TypeSender)
	require.Equal(t, before.Version, after.Version)
}

func TestIterReturnsOnlyMatchingType(t *testing.T) {
	s := New()
	s.Insert(&Resource{ID: uuid.New(), Type: TypeSender})
	s.Insert(&Resource{ID: uuid.New(), Type: TypeReceiver})

	senders := s.Iter(TypeSender)
	require.Len(t, senders, 1)
}

func TestWatchEmitsOneEventPerEdit(t *testing.T) {
	s := New()
	ch := s.Watch(4)
	id := uuid.New()
	s.Insert(&Resource{ID: id, Type: TypeSender, Data: 0})

	select {
	case ev := <-ch:
		require.Equal(t, id, ev.ID)
	default:
		t.Fatal("expected a change event")
	}
}
