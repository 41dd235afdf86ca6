package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

const (
	StatsFileKey        = "stats-file"
	LatencyTicksKey     = "local.latency_ticks"
	statsFileMode       = 0o600
	statsDirMode        = 0o700
	statsConfigDir      = ".config/gsunlock"
	statsConfigFile     = "stats.toml"
	tempFilePattern     = ".stats-*.toml.tmp"
	defaultLatencyTicks = 1
)

var ErrAppNotRegistered = errors.New("app is not registered in the stats file")

// Store persists per-user achievement state in a TOML file. Writes replace
// the file atomically; stores for the same path share one lock.
type Store struct {
	statsPath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(StatsFileKey, filepath.Join(homeDir, statsConfigDir, statsConfigFile))

	statsPath := cfg.GetString(StatsFileKey)
	if statsPath == "" {
		return nil, errors.New("stats file path is empty")
	}
	statsPath, err = normalizeStatsPath(statsPath)
	if err != nil {
		return nil, err
	}

	return &Store{statsPath: statsPath, mu: lockForPath(statsPath)}, nil
}

func (s *Store) Path() string {
	return s.statsPath
}

// Achievements lists the achievements defined for appID.
func (s *Store) Achievements(ctx context.Context, appID uint32) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	app := file.app(appID)
	if app == nil {
		return nil, fmt.Errorf("%w: app %d", ErrAppNotRegistered, appID)
	}

	return slices.Clone(app.Achievements), nil
}

// Unlocked returns the achievements already persisted for the user. A user
// without an entry has none.
func (s *Store) Unlocked(ctx context.Context, appID uint32, id domain.SteamID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	app := file.app(appID)
	if app == nil {
		return nil, fmt.Errorf("%w: app %d", ErrAppNotRegistered, appID)
	}
	if user := app.user(uint64(id)); user != nil {
		return slices.Clone(user.Unlocked), nil
	}

	return nil, nil
}

// Unlock merges names into the user's persisted set. Every name must be
// one of the app's registered achievements.
func (s *Store) Unlock(ctx context.Context, appID uint32, id domain.SteamID, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	app := file.app(appID)
	if app == nil {
		return fmt.Errorf("%w: app %d", ErrAppNotRegistered, appID)
	}
	for _, name := range names {
		if !app.defines(name) {
			return fmt.Errorf("%w %q for app %d", domain.ErrUnknownAchievement, name, appID)
		}
	}

	user := app.user(uint64(id))
	if user == nil {
		app.Users = append(app.Users, userSchema{SteamID: uint64(id)})
		user = &app.Users[len(app.Users)-1]
	}

	merged := append(slices.Clone(user.Unlocked), names...)
	slices.Sort(merged)
	user.Unlocked = slices.Compact(merged)

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

// RegisterApp defines (or redefines) the achievement list of appID,
// keeping any user state.
func (s *Store) RegisterApp(ctx context.Context, appID uint32, achievements []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	if app := file.app(appID); app != nil {
		app.Achievements = slices.Clone(achievements)
	} else {
		file.Apps = append(file.Apps, appSchema{AppID: appID, Achievements: slices.Clone(achievements)})
	}

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.statsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read stats file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode stats file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.statsPath), statsDirMode); err != nil {
		return fmt.Errorf("create stats directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode stats file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.statsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp stats file: %w", err)
	}
	if err := tempFile.Chmod(statsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp stats file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp stats file: %w", err)
	}

	if err := os.Rename(tempName, s.statsPath); err != nil {
		return fmt.Errorf("replace stats file: %w", err)
	}
	cleanup = false

	return nil
}

func normalizeStatsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve stats path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
