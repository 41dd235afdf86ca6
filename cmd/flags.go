package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bnema/steam-gs-unlock/internal/adapters/gameserver/local"
	"github.com/bnema/steam-gs-unlock/internal/adapters/gameserver/webapi"
	"github.com/bnema/steam-gs-unlock/internal/domain"
)

const (
	envPrefix     = "GSUNLOCK"
	configDirName = ".config/gsunlock"
	configFile    = "config.toml"

	flagSteamID      = "steamid"
	flagAchievement  = "achievement"
	flagAppID        = "app-id"
	flagIP           = "ip"
	flagGamePort     = "game-port"
	flagQueryPort    = "query-port"
	flagProduct      = "product"
	flagGameDesc     = "game-desc"
	flagModDir       = "mod-dir"
	flagServerName   = "server-name"
	flagVersion      = "version"
	flagServerMode   = "server-mode"
	flagTimeoutMS    = "timeout-ms"
	flagPollMS       = "poll-interval-ms"
	flagBackend      = "backend"
	flagStatsFile    = local.StatsFileKey
	flagWebAPIURL    = "webapi-url"
	flagAPIKey       = "api-key"
	flagAPIKeyRef    = "api-key-ref"
	flagOTLPEndpoint = "otlp-endpoint"
	flagOTLPInsecure = "otlp-insecure"
	flagVerbose      = "verbose"
	flagLogFormat    = "log-format"
	flagProgress     = "progress"
	flagConfig       = "config"

	backendWebAPI = "webapi"
	backendLocal  = "local"
)

func registerFlags(flags *pflag.FlagSet) {
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	flags.String(flagSteamID, "", "64-bit id of the user to unlock for (required)")
	flags.String(flagAchievement, "", "achievement API name (required)")
	flags.Uint32(flagAppID, 0, "app id, exported as SteamAppId before init (required)")

	flags.String(flagIP, "0", "server IPv4, integer or dotted quad")
	flags.Uint16(flagGamePort, domain.DefaultGamePort, "game port, 0 means default")
	flags.Uint16(flagQueryPort, domain.DefaultQueryPort, "query port, 0 means default")
	flags.String(flagProduct, domain.DefaultProduct, "product name")
	flags.String(flagGameDesc, domain.DefaultGameDesc, "game description")
	flags.String(flagModDir, domain.DefaultModDir, "mod directory")
	flags.String(flagServerName, domain.DefaultServerName, "server name")
	flags.String(flagVersion, domain.DefaultVersion, "server version string")
	flags.String(flagServerMode, domain.ServerModeAuthentication.String(), "server mode: noauth|authentication|secure or 1-3")

	flags.Int(flagTimeoutMS, int(domain.DefaultTimeout/time.Millisecond), "shared deadline for the whole run in milliseconds")
	flags.Int(flagPollMS, int(domain.DefaultPollInterval/time.Millisecond), "pump cadence in milliseconds")

	flags.String(flagBackend, backendWebAPI, "game server backend: webapi|local")
	flags.String(flagStatsFile, "", "stats file of the local backend (default ~/.config/gsunlock/stats.toml)")
	flags.String(flagWebAPIURL, webapi.DefaultBaseURL, "base URL of the web api backend")
	flags.String(flagAPIKey, "", "web api publisher key")
	flags.String(flagAPIKeyRef, "", "secret store reference holding the web api key (pass, then ~/.config/gsunlock/secrets)")

	flags.String(flagOTLPEndpoint, "", "export traces over OTLP/gRPC to host:port")
	flags.Bool(flagOTLPInsecure, true, "disable TLS for the OTLP exporter")
	flags.BoolP(flagVerbose, "v", false, "log diagnostics to stderr")
	flags.String(flagLogFormat, "text", "diagnostic log format: text|json")
	flags.Bool(flagProgress, false, "show the current stage on stderr")
	flags.String(flagConfig, "", "config file (default ~/.config/gsunlock/config.toml)")
}

func newConfigViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	return v, nil
}

// readConfigFile loads the TOML config file. A missing default file is
// not an error; a missing explicit one is.
func readConfigFile(v *viper.Viper) error {
	path := v.GetString(flagConfig)
	explicit := path != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(homeDir, configDirName, configFile)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	return nil
}

// loadConfig assembles the run configuration from flags, environment and
// config file, in that order of precedence.
func loadConfig(v *viper.Viper) (domain.Config, error) {
	var problems []error

	var steamID domain.SteamID
	if raw := v.GetString(flagSteamID); raw != "" {
		parsed, err := domain.ParseSteamID(raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("flag --%s: %w", flagSteamID, err))
		}
		steamID = parsed
	}

	ip, err := domain.ParseIPv4(v.GetString(flagIP))
	if err != nil {
		problems = append(problems, fmt.Errorf("flag --%s: %w", flagIP, err))
	}

	mode, err := domain.ParseServerMode(v.GetString(flagServerMode))
	if err != nil {
		problems = append(problems, fmt.Errorf("flag --%s: %w", flagServerMode, err))
	}

	if len(problems) > 0 {
		return domain.Config{}, fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(problems...))
	}

	cfg := domain.Config{
		SteamID:     steamID,
		Achievement: strings.TrimSpace(v.GetString(flagAchievement)),
		AppID:       v.GetUint32(flagAppID),
		Identity: domain.ServerIdentity{
			IP:        ip,
			GamePort:  v.GetUint16(flagGamePort),
			QueryPort: v.GetUint16(flagQueryPort),
			Mode:      mode,
			Version:   v.GetString(flagVersion),
		},
		Metadata: domain.ServerMetadata{
			Product:         v.GetString(flagProduct),
			GameDescription: v.GetString(flagGameDesc),
			ModDir:          v.GetString(flagModDir),
			ServerName:      v.GetString(flagServerName),
		},
		Timeout:      time.Duration(v.GetInt(flagTimeoutMS)) * time.Millisecond,
		PollInterval: time.Duration(v.GetInt(flagPollMS)) * time.Millisecond,
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}

	return cfg, nil
}
