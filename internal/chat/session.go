package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"finchat/internal/types"
)

// Session is one conversation and everything loaded into it. It replaces the
// implicit per-user state of a notebook UI: callers own sessions and pass them
// to the Assistant explicitly.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	messages    []types.Message
	bars        map[string][]types.Bar
	news        map[string][]types.NewsArticle
	newsSummary map[string]string
	contexts    map[string]types.MacroContext
	prompts     map[string]string
}

func NewSession() *Session {
	return &Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		bars:        make(map[string][]types.Bar),
		news:        make(map[string][]types.NewsArticle),
		newsSummary: make(map[string]string),
		contexts:    make(map[string]types.MacroContext),
		prompts:     make(map[string]string),
	}
}

// Messages returns a copy of the history.
func (s *Session) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) append(role types.Role, content string) types.Message {
	m := types.Message{Role: role, Content: content}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m
}

// Bars returns the loaded series for ticker, or nil.
func (s *Session) Bars(ticker string) []types.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bars[ticker]
}

// LoadedTickers lists the tickers with market data in this session.
func (s *Session) LoadedTickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bars))
	for t := range s.bars {
		out = append(out, t)
	}
	return out
}

func (s *Session) setBars(data map[string][]types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars = data
}

func (s *Session) News(ticker string) []types.NewsArticle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.news[ticker]
}

func (s *Session) setNews(ticker string, articles []types.NewsArticle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news[ticker] = articles
}

func (s *Session) NewsSummary(ticker string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.newsSummary[ticker]
	return v, ok
}

func (s *Session) setNewsSummary(ticker, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newsSummary[ticker] = summary
}

// MacroContext returns the last context built for ticker and its prompt block.
func (s *Session) MacroContext(ticker string) (types.MacroContext, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[ticker]
	return c, s.prompts[ticker], ok
}

func (s *Session) setMacroContext(c types.MacroContext, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.Ticker] = c
	s.prompts[c.Ticker] = prompt
}
