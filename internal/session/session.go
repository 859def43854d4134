// Package session holds per-user dataset state. Each Session loads its own
// tables lazily and hands out copies, so concurrent sessions never share
// mutable data.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/schema"
)

// Settings tell a session where its inputs are and how to read them.
type Settings struct {
	DataDir           string
	FraudPatterns     []string
	MarketingPatterns []string
	// FraudPath and MarketingPath bypass pattern resolution when set.
	FraudPath     string
	MarketingPath string
	Schema        schema.Schema
	Fraud         fraud.Options
	Load          dataset.LoadOptions
}

// Session is one user's view of the two datasets.
type Session struct {
	ID      string
	Created time.Time

	settings Settings

	mu       sync.Mutex
	lastSeen time.Time

	// loadMu serializes loads; a successful load is kept, a failed one is
	// retried on the next call.
	loadMu    sync.Mutex
	fraud     *fraud.Prepared
	marketing *dataset.Table
}

// New creates a session with a fresh random id.
func New(settings Settings) *Session {
	now := time.Now()
	return &Session{ID: uuid.NewString(), Created: now, lastSeen: now, settings: settings}
}

// Fraud returns the prepared transaction table, loading it on first use.
// The returned value must be treated as read-only; Apply hands out copies.
func (s *Session) Fraud() (*fraud.Prepared, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.fraud != nil {
		return s.fraud, nil
	}
	path, err := s.resolve(s.settings.FraudPath, s.settings.FraudPatterns)
	if err != nil {
		return nil, err
	}
	t, err := dataset.Load(path, s.settings.Load)
	if err != nil {
		return nil, err
	}
	p, err := fraud.Prepare(t, s.settings.Schema, s.settings.Fraud)
	if err != nil {
		return nil, err
	}
	s.fraud = p
	return p, nil
}

// Marketing returns a copy of the customer table, loading it on first use.
func (s *Session) Marketing() (*dataset.Table, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.marketing == nil {
		path, err := s.resolve(s.settings.MarketingPath, s.settings.MarketingPatterns)
		if err != nil {
			return nil, err
		}
		t, err := dataset.Load(path, s.settings.Load)
		if err != nil {
			return nil, err
		}
		s.marketing = t
	}
	return s.marketing.Clone(), nil
}

// Schema returns the column roles of this session.
func (s *Session) Schema() schema.Schema { return s.settings.Schema.WithDefaults() }

// FraudStatus is a one-line status of the transaction dataset.
func (s *Session) FraudStatus() string {
	p, err := s.Fraud()
	if err != nil {
		return fmt.Sprintf("unavailable: %v", err)
	}
	return p.Status()
}

// MarketingStatus is a one-line status of the customer dataset.
func (s *Session) MarketingStatus() string {
	t, err := s.Marketing()
	if err != nil {
		return fmt.Sprintf("unavailable: %v", err)
	}
	return marketing.Status(t, s.Schema())
}

func (s *Session) resolve(explicit string, patterns []string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return dataset.Resolve(s.settings.DataDir, patterns)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
