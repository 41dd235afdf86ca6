package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetUsesPassShowAndKeepsFirstLine(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "steam/partner/480"}, args)
			return "ABCDEF0123456789\r\nlogin: publisher\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "steam/partner/480")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123456789", value)
}

func TestStoreGetRejectsEmptyEntry(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			return "\nnotes only\n", "", nil
		},
	}

	_, err := store.Get(context.Background(), "steam/partner/480")
	require.Error(t, err)
	assert.ErrorContains(t, err, "is empty")
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			return "", "Error: steam/partner/480 is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "steam/partner/480")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass show")
	assert.ErrorContains(t, err, "steam/partner/480")
	assert.ErrorContains(t, err, "not in the password store")
}

func TestStoreGetHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, args ...string) (string, string, error) {
			t.Fatal("pass must not run with a canceled context")
			return "", "", nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "steam/partner/480")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunPassCommandReportsMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, _, err := runPassCommand(context.Background(), "show", "steam/partner/480")
	require.ErrorIs(t, err, ErrUnavailable)
}
