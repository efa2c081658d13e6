package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the stats hub. Supports gradual
// rollout keyed on a stable subject (client IP or player key) and env-var
// overrides, so risky features like the SSE feed can be dialed up slowly.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Subjects are assigned to buckets by a
	// consistent hash, so a subject stays in or out across requests.
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	// Subject is the stable identity used for rollout bucketing, usually
	// the client IP or a player key. Empty means no bucketing.
	Subject string
}

// Predefined feature flag names.
const (
	// === Leaderboard Features ===
	FeatureLeaderboardGains  = "leaderboard.gains"  // daily/weekly/monthly modes
	FeatureLeaderboardBadges = "leaderboard.badges" // badge-count mode
	FeatureLeaderboardMedals = "leaderboard.medals" // level-99 medal decoration

	// === Search Features ===
	FeatureSearchRecentList = "search.recent_list" // recent-searches view

	// === Live Features ===
	FeatureEventsSSE = "events.sse" // SSE change feed

	// === Sync Features ===
	FeatureSyncRotation = "sync.rotation" // background player rotation
	FeatureSyncBackfill = "sync.backfill" // nightly achiever backfill
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureLeaderboardGains] = &Feature{
		Name:           FeatureLeaderboardGains,
		Description:    "Daily, weekly and monthly gain leaderboards",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardBadges] = &Feature{
		Name:           FeatureLeaderboardBadges,
		Description:    "Badge-count leaderboard mode",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardMedals] = &Feature{
		Name:           FeatureLeaderboardMedals,
		Description:    "Gold/silver/bronze decoration for the first level-99 achievers",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSearchRecentList] = &Feature{
		Name:           FeatureSearchRecentList,
		Description:    "Recent searches strip on the dashboard",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureEventsSSE] = &Feature{
		Name:           FeatureEventsSSE,
		Description:    "Server-sent event stream of player updates",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSyncRotation] = &Feature{
		Name:           FeatureSyncRotation,
		Description:    "Background sync rotation over all tracked players",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSyncBackfill] = &Feature{
		Name:           FeatureSyncBackfill,
		Description:    "Nightly achiever rank rebuild from XP history",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_EVENTS_SSE=false
// Example: FEATURE_LEADERBOARD_GAINS=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "leaderboard.gains" -> "FEATURE_LEADERBOARD_GAINS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.Subject != "" {
		return isInRollout(ctx.Subject, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a subject is in the rollout percentage.
// Uses consistent hashing so subjects stay in their bucket.
func isInRollout(subject, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(subject))
	bucket := int(h.Sum32() % 100)
	return bucket < percent
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
