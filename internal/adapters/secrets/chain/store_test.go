package chain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	portmocks "github.com/bnema/steam-gs-unlock/internal/ports/mocks"
)

const partnerKeyRef = "steam/partner/480"

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, partnerKeyRef).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), partnerKeyRef)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, partnerKeyRef).Return("", errors.New("pass unavailable")).Once()
	fallback.EXPECT().Get(mock.Anything, partnerKeyRef).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), partnerKeyRef)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, partnerKeyRef).Return("", errors.New("pass failed")).Once()
	fallback.EXPECT().Get(mock.Anything, partnerKeyRef).Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), partnerKeyRef)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockSecretStore(t)
	fallback := portmocks.NewMockSecretStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, partnerKeyRef).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), partnerKeyRef)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreCheckedRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, portmocks.NewMockSecretStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStoreChecked(portmocks.NewMockSecretStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}

func TestPassFirstFallsBackToFileWithoutPass(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	root := t.TempDir()
	path := filepath.Join(root, partnerKeyRef)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("ABCDEF0123456789\n"), 0o600))

	store, err := NewPassFirstWithFileFallback(root)
	require.NoError(t, err)

	value, err := store.Get(context.Background(), partnerKeyRef)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF0123456789", value)
}
