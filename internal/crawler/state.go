package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the persisted crawl configuration. It is the single source of
// truth for crawl progress and survives restarts via a JSON file.
type State struct {
	LastCrawledNumber    int        `json:"last_crawled_number"`
	LastCrawlDate        *time.Time `json:"last_crawl_date"`
	MaxArticlesPerMonth  int        `json:"max_articles_per_month"`
	DelayBetweenRequests float64    `json:"delay_between_requests"` // seconds
	AutoIncrementLimit   int        `json:"auto_increment_limit"`
}

// DefaultState returns the configuration written on first access.
func DefaultState() State {
	return State{
		LastCrawledNumber:    1668, // Start from a known article
		LastCrawlDate:        nil,
		MaxArticlesPerMonth:  20,
		DelayBetweenRequests: 1.0,
		AutoIncrementLimit:   50,
	}
}

// RequestDelay returns the configured inter-request delay as a duration.
func (s State) RequestDelay() time.Duration {
	return time.Duration(s.DelayBetweenRequests * float64(time.Second))
}

// StateFile guards the persisted crawl state. All read-modify-write
// sequences hold the mutex so concurrent invocations serialize instead of
// overwriting each other.
type StateFile struct {
	path string

	mu    sync.Mutex
	state State
}

// LoadStateFile reads the state file at path, creating it with defaults when
// it is absent or unreadable.
func LoadStateFile(path string) *StateFile {
	sf := &StateFile{path: path}

	data, err := os.ReadFile(path)
	if err == nil {
		var state State
		if err := json.Unmarshal(data, &state); err == nil {
			sf.state = state
			return sf
		}
		log.Warn().Err(err).Str("path", path).Msg("Invalid crawl state file, recreating with defaults")
	}

	sf.state = DefaultState()
	if err := sf.write(sf.state); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write default crawl state")
	}
	return sf
}

// Get returns a copy of the current state.
func (sf *StateFile) Get() State {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.state
}

// Update applies fn to the state under the lock and persists the result.
// The whole file is rewritten on every mutation.
func (sf *StateFile) Update(fn func(*State)) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	next := sf.state
	fn(&next)
	if err := sf.write(next); err != nil {
		return err
	}
	sf.state = next
	return nil
}

func (sf *StateFile) write(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal crawl state: %w", err)
	}
	if err := os.WriteFile(sf.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write crawl state to %s: %w", sf.path, err)
	}
	return nil
}
