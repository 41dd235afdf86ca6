package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/steam-gs-unlock/internal/adapters/gameserver/local"
	"github.com/bnema/steam-gs-unlock/internal/adapters/gameserver/webapi"
	chainstore "github.com/bnema/steam-gs-unlock/internal/adapters/secrets/chain"
	"github.com/bnema/steam-gs-unlock/internal/adapters/telemetry"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

const (
	steamAppIDEnv      = "SteamAppId"
	secretsDirName     = "secrets"
	webAPIRequestLimit = 10 * time.Second
)

type app struct {
	clock          ports.Clock
	setenv         func(key, value string) error
	newFactory     func(ctx context.Context, v *viper.Viper, logger *slog.Logger) (ports.GameServerFactory, error)
	newSecretStore func() (ports.SecretStore, error)
	initTelemetry  func(ctx context.Context, logger *slog.Logger, cfg telemetry.Config) (trace.TracerProvider, func(context.Context), error)
}

func wireApp() *app {
	a := &app{
		clock:          ports.SystemClock{},
		setenv:         os.Setenv,
		newSecretStore: newSecretStore,
		initTelemetry:  telemetry.Init,
	}
	a.newFactory = a.backendFactory
	return a
}

func newSecretStore() (ports.SecretStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	store, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, configDirName, secretsDirName))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}
	return store, nil
}

func (a *app) backendFactory(ctx context.Context, v *viper.Viper, logger *slog.Logger) (ports.GameServerFactory, error) {
	switch backend := strings.ToLower(v.GetString(flagBackend)); backend {
	case backendLocal:
		factory, err := local.NewFactory(v)
		if err != nil {
			return nil, fmt.Errorf("wire local backend: %w", err)
		}
		return factory, nil
	case backendWebAPI:
		// A missing key is a client construction failure, reported by Init.
		key, keyErr := a.resolveAPIKey(ctx, v)
		return webapi.Factory{
			API:            webapi.API{BaseURL: v.GetString(flagWebAPIURL), Key: key},
			HTTPClient:     &http.Client{},
			RequestTimeout: webAPIRequestLimit,
			Logger:         logger,
			KeyErr:         keyErr,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q (want %s or %s)", backend, backendWebAPI, backendLocal)
	}
}

func (a *app) resolveAPIKey(ctx context.Context, v *viper.Viper) (string, error) {
	if key := strings.TrimSpace(v.GetString(flagAPIKey)); key != "" {
		return key, nil
	}

	ref := strings.TrimSpace(v.GetString(flagAPIKeyRef))
	if ref == "" {
		return "", fmt.Errorf("backend %s needs --%s or --%s", backendWebAPI, flagAPIKey, flagAPIKeyRef)
	}

	store, err := a.newSecretStore()
	if err != nil {
		return "", err
	}
	key, err := store.Get(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve web api key %q: %w", ref, err)
	}
	return key, nil
}
