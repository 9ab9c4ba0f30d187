package trace

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderOrderAndFilter(t *testing.T) {
	r := NewRecorder(0)
	r.Record("s1", StageReceived, "hello")
	r.Record("s2", StageReceived, "bonjour")
	r.Record("s1", StageClassified, "restaurant_search")

	all := r.Events("")
	require.Len(t, all, 3)
	assert.Equal(t, StageReceived, all[0].Stage)
	assert.Equal(t, StageClassified, all[2].Stage)

	s1 := r.Events("s1")
	require.Len(t, s1, 2)
	assert.Equal(t, "restaurant_search", s1[1].Detail)
}

func TestRecorderBoundedCapacity(t *testing.T) {
	r := NewRecorder(5)
	for i := 0; i < 12; i++ {
		r.Record("s", StageReceived, fmt.Sprintf("turn %d", i))
	}

	events := r.Events("")
	require.Len(t, events, 5)
	assert.Equal(t, "turn 7", events[0].Detail, "oldest events dropped first")
	assert.Equal(t, "turn 11", events[4].Detail)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(0)
	r.Record("s", StageReceived, "")
	r.Reset()
	assert.Empty(t, r.Events(""))
}
