package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/food_delivery/internal/models"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestUniqueByID(t *testing.T) {
	t.Parallel()

	in := []models.User{{ID: 3, Name: "a"}, {ID: 1, Name: "b"}, {ID: 3, Name: "c"}, {ID: 2, Name: "d"}}
	got := uniqueByID(in, userKey, (*models.User).Clone)

	assert.Equal(t, []models.User{{ID: 3, Name: "c"}, {ID: 1, Name: "b"}, {ID: 2, Name: "d"}}, got)
	assert.Equal(t, "a", in[0].Name)
	assert.Empty(t, uniqueByID(nil, userKey, (*models.User).Clone))
}

func TestState(t *testing.T) {
	t.Parallel()

	var s state
	s.init(nil, "test")

	s.begin()
	s.begin()
	assert.True(t, s.Loading())

	_ = s.fail("op", errNotFound)
	assert.True(t, s.Loading())
	assert.ErrorIs(t, s.LastError(), errNotFound)

	applied := false
	s.commit(func() { applied = true })
	assert.True(t, applied)
	assert.False(t, s.Loading())
	assert.ErrorIs(t, s.LastError(), errNotFound)

	s.begin()
	assert.NoError(t, s.LastError())
	_ = s.fail("op", errNotFound)

	s.ClearError()
	assert.NoError(t, s.LastError())
	assert.False(t, s.Loading())
}
