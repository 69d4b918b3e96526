package heartbeat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wakafocusd/internal/config"
	"wakafocusd/internal/focus"
	"wakafocusd/internal/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New(&logging.Config{Level: logging.LevelError})
	require.NoError(t, err)
	return log
}

func newTestBuilder(t *testing.T, cfg *config.Config) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg, testLogger(t))
	require.NoError(t, err)
	return b
}

// =============================================================================
// Category matching
// =============================================================================

func TestCategoryDefaultWithoutRules(t *testing.T) {
	b := newTestBuilder(t, config.Default())

	hb := b.Build(focus.Event{AppClass: "firefox"})
	assert.Equal(t, CategoryCoding, hb.Category)
}

func TestCategoryFirstMatchWins(t *testing.T) {
	cfg := config.Default()
	cfg.CategoryRules = []config.CategoryRule{
		{Pattern: "firefox|chromium", Category: "browsing"},
		{Pattern: "fire.*", Category: "communicating"},
		{Pattern: "slack|discord", Category: "communicating"},
	}
	b := newTestBuilder(t, cfg)

	assert.Equal(t, CategoryBrowsing, b.Build(focus.Event{AppClass: "firefox"}).Category)
	assert.Equal(t, CategoryBrowsing, b.Build(focus.Event{AppClass: "chromium"}).Category)
	assert.Equal(t, CategoryCommunicating, b.Build(focus.Event{AppClass: "slack"}).Category)
	assert.Equal(t, CategoryCoding, b.Build(focus.Event{AppClass: "code"}).Category)
}

func TestCategoryMatchingIsCaseInsensitive(t *testing.T) {
	cfg := config.Default()
	cfg.CategoryRules = []config.CategoryRule{
		{Pattern: "firefox", Category: "browsing"},
	}
	b := newTestBuilder(t, cfg)

	for _, class := range []string{"firefox", "Firefox", "FIREFOX"} {
		assert.Equal(t, CategoryBrowsing, b.Build(focus.Event{AppClass: class}).Category, class)
	}
}

func TestInvalidRuleIsSkippedNotFatal(t *testing.T) {
	cfg := config.Default()
	cfg.CategoryRules = []config.CategoryRule{
		{Pattern: "[unclosed", Category: "browsing"},
		{Pattern: "nonsense", Category: "no-such-category"},
		{Pattern: "firefox", Category: "browsing"},
	}
	b := newTestBuilder(t, cfg)

	// Only the valid rule survives.
	assert.Len(t, b.rules, 1)
	assert.Equal(t, CategoryBrowsing, b.Build(focus.Event{AppClass: "firefox"}).Category)
}

func TestUnknownDefaultCategoryIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultCategory = "no-such-category"

	_, err := NewBuilder(cfg, testLogger(t))
	require.Error(t, err)
}

// =============================================================================
// Entity construction
// =============================================================================

func TestEntityConstruction(t *testing.T) {
	event := focus.Event{AppClass: "code", Title: "main.rs"}

	tests := []struct {
		name        string
		trackTitles bool
		strategy    string
		event       focus.Event
		want        Entity
	}{
		{"titles off", false, config.TitleStrategyIgnore, event, "code"},
		{"titles off append strategy", false, config.TitleStrategyAppend, event, "code"},
		{"ignore strategy", true, config.TitleStrategyIgnore, event, "code"},
		{"append strategy", true, config.TitleStrategyAppend, event, "code — main.rs"},
		{"append with empty title", true, config.TitleStrategyAppend, focus.Event{AppClass: "code"}, "code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TrackTitles = tt.trackTitles
			cfg.TitleStrategy = tt.strategy

			hb := newTestBuilder(t, cfg).Build(tt.event)
			assert.Equal(t, tt.want, hb.Entity)
		})
	}
}

func TestBuildKeepsSourceEvent(t *testing.T) {
	event := focus.Event{AppClass: "firefox", Title: "Mozilla Firefox", WindowID: "0xabc"}

	hb := newTestBuilder(t, config.Default()).Build(event)
	assert.Equal(t, event, hb.Source)
}

// =============================================================================
// Allow/deny filtering
// =============================================================================

func TestAllowedNoFilters(t *testing.T) {
	b := newTestBuilder(t, config.Default())

	assert.True(t, b.Allowed("firefox"))
	assert.True(t, b.Allowed("code"))
}

func TestAllowedDenylist(t *testing.T) {
	cfg := config.Default()
	cfg.AppDenylist = []string{"Slack"}
	b := newTestBuilder(t, cfg)

	assert.True(t, b.Allowed("firefox"))
	assert.False(t, b.Allowed("slack"))
	assert.False(t, b.Allowed("SLACK"))
}

func TestAllowedAllowlist(t *testing.T) {
	cfg := config.Default()
	cfg.AppAllowlist = []string{"Code", "firefox"}
	b := newTestBuilder(t, cfg)

	assert.True(t, b.Allowed("code"))
	assert.True(t, b.Allowed("firefox"))
	assert.False(t, b.Allowed("chromium"))
}

func TestDenylistOverridesAllowlist(t *testing.T) {
	cfg := config.Default()
	cfg.AppAllowlist = []string{"firefox", "code"}
	cfg.AppDenylist = []string{"firefox"}
	b := newTestBuilder(t, cfg)

	assert.False(t, b.Allowed("firefox"))
	assert.True(t, b.Allowed("code"))
}
