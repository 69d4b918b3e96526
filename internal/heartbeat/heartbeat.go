// Package heartbeat turns focus events into rate-limited activity
// heartbeats.
//
// The Builder resolves a heartbeat's category and entity from a focus
// event using ordered pattern rules; the Throttle decides Send or Skip
// based on entity identity and elapsed time.
package heartbeat

import (
	"fmt"

	"wakafocusd/internal/focus"
)

// Category is a WakaTime activity category.
type Category string

// The WakaTime category set.
// See: https://wakatime.com/developers#heartbeats
const (
	CategoryCoding        Category = "coding"
	CategoryBuilding      Category = "building"
	CategoryIndexing      Category = "indexing"
	CategoryDebugging     Category = "debugging"
	CategoryBrowsing      Category = "browsing"
	CategoryRunningTests  Category = "running tests"
	CategoryWritingTests  Category = "writing tests"
	CategoryManualTesting Category = "manual testing"
	CategoryWritingDocs   Category = "writing docs"
	CategoryCodeReviewing Category = "code reviewing"
	CategoryCommunicating Category = "communicating"
	CategoryNotes         Category = "notes"
	CategoryResearching   Category = "researching"
	CategoryLearning      Category = "learning"
	CategoryDesigning     Category = "designing"
)

var knownCategories = map[Category]bool{
	CategoryCoding:        true,
	CategoryBuilding:      true,
	CategoryIndexing:      true,
	CategoryDebugging:     true,
	CategoryBrowsing:      true,
	CategoryRunningTests:  true,
	CategoryWritingTests:  true,
	CategoryManualTesting: true,
	CategoryWritingDocs:   true,
	CategoryCodeReviewing: true,
	CategoryCommunicating: true,
	CategoryNotes:         true,
	CategoryResearching:   true,
	CategoryLearning:      true,
	CategoryDesigning:     true,
}

// ParseCategory validates a configured category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !knownCategories[c] {
		return "", fmt.Errorf("unknown category: %q", s)
	}
	return c, nil
}

// Entity identifies what is being worked on in a heartbeat: the app
// class, optionally with the window title appended.
type Entity string

// Heartbeat is a complete activity record ready to send to the sink.
type Heartbeat struct {
	// Entity is the tracked-activity string.
	Entity Entity

	// Category is the resolved activity category.
	Category Category

	// Source is the focus event the heartbeat was constructed from,
	// kept for provenance and for periodic re-resolution.
	Source focus.Event
}
