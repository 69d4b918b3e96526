package heartbeat

import (
	"fmt"
	"regexp"
	"strings"

	"wakafocusd/internal/config"
	"wakafocusd/internal/focus"
	"wakafocusd/internal/logging"
)

// compiledRule is a category rule with its pattern compiled.
type compiledRule struct {
	pattern  *regexp.Regexp
	category Category
}

// Builder constructs Heartbeats from focus events using configured
// category rules, title strategy, and app filters.
type Builder struct {
	log *logging.Logger

	rules           []compiledRule
	defaultCategory Category

	trackTitles   bool
	titleStrategy string

	// allowlist nil means no allowlist is configured; an empty non-nil
	// allowlist passes nothing.
	allowlist []string
	denylist  []string
}

// NewBuilder compiles the configured rules. A rule with an invalid
// pattern or unknown category is skipped with a warning; an unknown
// default category is a startup error.
func NewBuilder(cfg *config.Config, log *logging.Logger) (*Builder, error) {
	defaultCategory, err := ParseCategory(cfg.DefaultCategory)
	if err != nil {
		return nil, fmt.Errorf("default_category: %w", err)
	}

	b := &Builder{
		log:             log.WithComponent("heartbeat"),
		defaultCategory: defaultCategory,
		trackTitles:     cfg.TrackTitles,
		titleStrategy:   cfg.TitleStrategy,
	}

	for _, rule := range cfg.CategoryRules {
		category, err := ParseCategory(rule.Category)
		if err != nil {
			b.log.Warn("skipping category rule", "pattern", rule.Pattern, "error", err)
			continue
		}

		pattern, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			b.log.Warn("skipping category rule with invalid pattern",
				"pattern", rule.Pattern, "error", err)
			continue
		}

		b.rules = append(b.rules, compiledRule{pattern: pattern, category: category})
	}

	if cfg.AppAllowlist != nil {
		b.allowlist = lowered(cfg.AppAllowlist)
	}
	b.denylist = lowered(cfg.AppDenylist)

	return b, nil
}

func lowered(classes []string) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = strings.ToLower(c)
	}
	return out
}

// Allowed reports whether an app class passes the allow/deny filters.
// Matching is case-insensitive; the denylist wins over the allowlist;
// without an allowlist every non-denied class passes.
func (b *Builder) Allowed(appClass string) bool {
	class := strings.ToLower(appClass)

	for _, denied := range b.denylist {
		if denied == class {
			return false
		}
	}

	if b.allowlist == nil {
		return true
	}
	for _, allowed := range b.allowlist {
		if allowed == class {
			return true
		}
	}
	return false
}

// Build resolves the category and entity for a focus event. The event
// must have a non-empty app class.
func (b *Builder) Build(event focus.Event) Heartbeat {
	return Heartbeat{
		Entity:   b.entity(event),
		Category: b.category(event.AppClass),
		Source:   event,
	}
}

// category evaluates the rules in configured order; first match wins.
func (b *Builder) category(appClass string) Category {
	for _, rule := range b.rules {
		if rule.pattern.MatchString(appClass) {
			return rule.category
		}
	}
	return b.defaultCategory
}

// entity derives the tracked-activity string from class and title.
func (b *Builder) entity(event focus.Event) Entity {
	if b.trackTitles && b.titleStrategy == config.TitleStrategyAppend && event.Title != "" {
		return Entity(event.AppClass + " — " + event.Title)
	}
	return Entity(event.AppClass)
}
