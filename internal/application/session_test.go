package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports/mocks"
	"github.com/bnema/steam-gs-unlock/internal/testutil"
)

func testConfig() domain.Config {
	cfg := domain.Config{
		SteamID:     76561197960287930,
		Achievement: "ACH_WIN_ONE_GAME",
		AppID:       480,
		Identity: domain.ServerIdentity{
			Mode:    domain.ServerModeAuthentication,
			Version: domain.DefaultVersion,
		},
		Metadata: domain.ServerMetadata{
			Product:         domain.DefaultProduct,
			GameDescription: domain.DefaultGameDesc,
			ModDir:          domain.DefaultModDir,
			ServerName:      domain.DefaultServerName,
		},
		Timeout:      100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
	cfg.ApplyDefaults()
	return cfg
}

func openReadySession(t *testing.T, script testutil.ServerScript) (*Session, *testutil.GameServer) {
	t.Helper()

	factory := testutil.NewGameServerFactory(script)
	session := NewSession(factory, nil)
	require.NoError(t, session.Open(context.Background(), testConfig()))

	op, err := session.LogOn()
	require.NoError(t, err)
	session.Pump()
	_, done := op.Poll()
	require.True(t, done)
	require.Equal(t, domain.SessionReady, session.State())

	return session, factory.Server()
}

func TestSessionOpenAppliesMetadataAndConnects(t *testing.T) {
	t.Parallel()

	factory := testutil.NewGameServerFactory(testutil.HappyScript())
	session := NewSession(factory, nil)
	cfg := testConfig()

	require.NoError(t, session.Open(context.Background(), cfg))
	assert.Equal(t, domain.SessionConnecting, session.State())

	server := factory.Server()
	require.NotNil(t, server)
	assert.Equal(t, uint32(480), server.AppID())
	assert.Equal(t, domain.DefaultGamePort, server.Identity().GamePort)
	assert.Equal(t, domain.DefaultQueryPort, server.Identity().QueryPort)
	assert.True(t, server.Metadata().Dedicated)
	assert.Equal(t, domain.DefaultProduct, server.Metadata().Product)
	assert.Equal(t, []string{"init", "metadata"}, server.Calls())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	session, server := openReadySession(t, testutil.HappyScript())

	session.Close()
	session.Close()

	assert.Equal(t, 1, server.Shutdowns())
	_, err := session.RequestUserStats(42)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSessionCloseShutsDownPartiallyInitializedClient(t *testing.T) {
	t.Parallel()

	script := testutil.HappyScript()
	script.InitErr = errors.New("query port already bound")
	factory := testutil.NewGameServerFactory(script)
	session := NewSession(factory, nil)

	err := session.Open(context.Background(), testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInit)
	assert.ErrorContains(t, err, "query port already bound")
	assert.Equal(t, domain.SessionFailed, session.State())

	session.Close()
	assert.Equal(t, 1, factory.Server().Shutdowns())
}

func TestSessionCloseWithoutClientDoesNothing(t *testing.T) {
	t.Parallel()

	factory := mocks.NewMockGameServerFactory(t)
	factory.EXPECT().Init(mock.Anything, uint32(480), mock.Anything).Return(nil, errors.New("steam not running")).Once()

	session := NewSession(factory, nil)
	err := session.Open(context.Background(), testConfig())
	require.ErrorIs(t, err, domain.ErrInit)

	assert.NotPanics(t, session.Close)
	assert.NotPanics(t, session.Close)
}

func TestSessionLogOnCompletesOnlyAfterLoggedOn(t *testing.T) {
	t.Parallel()

	script := testutil.HappyScript()
	script.LogOnAfterTicks = 3
	factory := testutil.NewGameServerFactory(script)
	session := NewSession(factory, nil)
	require.NoError(t, session.Open(context.Background(), testConfig()))

	op, err := session.LogOn()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		session.Pump()
		_, done := op.Poll()
		require.False(t, done)
		assert.Equal(t, domain.SessionConnecting, session.State())
	}

	session.Pump()
	result, done := op.Poll()
	require.True(t, done)
	assert.True(t, result.Value.LoggedOn)
	assert.NoError(t, result.Err)
	assert.Equal(t, domain.SessionReady, session.State())
}

func TestSessionAbandonedLogOnFailsSession(t *testing.T) {
	t.Parallel()

	script := testutil.HappyScript()
	script.LogOnAfterTicks = 2
	factory := testutil.NewGameServerFactory(script)
	session := NewSession(factory, nil)
	require.NoError(t, session.Open(context.Background(), testConfig()))

	op, err := session.LogOn()
	require.NoError(t, err)
	op.abandon()
	assert.Equal(t, domain.SessionFailed, session.State())

	session.Pump()
	session.Pump()
	_, done := op.Poll()
	assert.False(t, done)
}

func TestSessionRejectsStatsBeforeLogOn(t *testing.T) {
	t.Parallel()

	factory := testutil.NewGameServerFactory(testutil.HappyScript())
	session := NewSession(factory, nil)
	require.NoError(t, session.Open(context.Background(), testConfig()))

	_, err := session.RequestUserStats(42)
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)

	err = session.SetUserAchievement(42, "ACH_WIN_ONE_GAME")
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
}

func TestSessionRoutesCompletionToMatchingCall(t *testing.T) {
	t.Parallel()

	script := testutil.HappyScript()
	script.StatsAfterTicks = 2
	session, _ := openReadySession(t, script)

	op, err := session.RequestUserStats(42)
	require.NoError(t, err)

	session.Pump()
	_, done := op.Poll()
	require.False(t, done)

	session.Pump()
	result, done := op.Poll()
	require.True(t, done)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.SteamID(42), result.Value.SteamID)
	assert.Equal(t, domain.ResultOK, result.Value.Result)
}

func TestSessionDropsLateCompletionOfAbandonedCall(t *testing.T) {
	t.Parallel()

	script := testutil.HappyScript()
	script.StatsAfterTicks = 2
	session, _ := openReadySession(t, script)

	op, err := session.RequestUserStats(42)
	require.NoError(t, err)
	op.abandon()

	session.Pump()
	session.Pump()
	session.Pump()

	_, done := op.Poll()
	assert.False(t, done)
}

func TestSessionMapsFailedCompletions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		result    domain.Result
		ioFailure bool
		wantErr   string
	}{
		{name: "explicit failure result", result: domain.ResultFail, wantErr: "result fail"},
		{name: "access denied", result: domain.ResultAccessDenied, wantErr: "result access_denied"},
		{name: "io failure without payload", result: domain.ResultNone, ioFailure: true, wantErr: "i/o failure"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			script := testutil.HappyScript()
			script.StatsResult = tc.result
			script.StatsIOFailure = tc.ioFailure
			session, _ := openReadySession(t, script)

			op, err := session.RequestUserStats(42)
			require.NoError(t, err)
			session.Pump()

			outcome, done := op.outcome()
			require.True(t, done)
			assert.Equal(t, domain.OutcomeRemoteFailure, outcome.Kind)
			assert.ErrorIs(t, outcome.Err, domain.ErrRemoteFailure)
			assert.ErrorContains(t, outcome.Err, tc.wantErr)
		})
	}
}

func TestSessionSetAchievementWrapsLogicError(t *testing.T) {
	t.Parallel()

	session, _ := openReadySession(t, testutil.HappyScript())

	err := session.SetUserAchievement(42, "ACH_WIN_ONE_GAME")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLogic)
	assert.ErrorIs(t, err, domain.ErrStatsNotLoaded)

	op, err := session.RequestUserStats(42)
	require.NoError(t, err)
	session.Pump()
	_, done := op.Poll()
	require.True(t, done)

	err = session.SetUserAchievement(42, "ACH_DOES_NOT_EXIST")
	assert.ErrorIs(t, err, domain.ErrLogic)
	assert.ErrorIs(t, err, domain.ErrUnknownAchievement)

	assert.NoError(t, session.SetUserAchievement(42, "ACH_WIN_ONE_GAME"))
}
