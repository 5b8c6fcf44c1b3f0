package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/c11model/internal/action"
)

// TestGCPrunesActionsBelowCVMin exercises §4.7: once every live thread has
// moved past a seq_cst write's position, GC must be able to remove it from
// the trace without disturbing later reads of the same location.
func TestGCPrunesActionsBelowCVMin(t *testing.T) {
	e := newTestExecution()
	const x action.Location = 0x9000

	w1 := action.New(1, action.AtomicWrite, action.SeqCst, x, 1)
	_, err := e.Step(w1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		w := action.New(1, action.AtomicWrite, action.SeqCst, x, uint64(i+2))
		_, err := e.Step(w)
		require.NoError(t, err)
	}
	r2 := action.New(2, action.AtomicRead, action.SeqCst, x, 0)
	_, err = e.Step(r2)
	require.NoError(t, err)

	before := e.Trace().Len()
	e.GC()
	after := e.Trace().Len()
	assert.LessOrEqual(t, after, before)

	r2b := action.New(2, action.AtomicRead, action.SeqCst, x, 0)
	_, err = e.Step(r2b)
	require.NoError(t, err)
	assert.NotNil(t, r2b.ReadsFrom, "reads must still resolve after GC")
}
