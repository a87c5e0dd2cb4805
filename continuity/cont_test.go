package continuity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	t.Run("all steps succeed", func(t *testing.T) {
		err := NewSequence().
			Step(func() error { return nil }).
			Step(func() error { return nil }).
			Step(func() error { return nil }).
			Err()
		require.NoError(t, err)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		var step0, step1, step2, step3 bool
		err := NewSequence().
			Step(func() error { step0 = true; return nil }).
			Step(func() error { step1 = true; return nil }).
			Step(func() error { step2 = true; return errors.New("step 2 error") }).
			Step(func() error { step3 = true; return nil }).
			Err()
		require.Error(t, err)
		require.Equal(t, "step 2 error", err.Error())
		require.True(t, step0)
		require.True(t, step1)
		require.True(t, step2)
		require.False(t, step3)
	})
}

func TestCloseAll(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		var calls int
		err := CloseAll(
			func() error { calls++; return nil },
			func() error { calls++; return nil },
		)
		require.NoError(t, err)
		require.Equal(t, 2, calls)
	})

	t.Run("runs every closer even after a failure", func(t *testing.T) {
		var calls int
		err := CloseAll(
			func() error { calls++; return errors.New("close 1 failed") },
			func() error { calls++; return nil },
			func() error { calls++; return errors.New("close 3 failed") },
		)
		require.Error(t, err)
		require.Equal(t, 3, calls)
		require.Equal(t, "multiple errors: close 1 failed, close 3 failed", err.Error())
	})
}
