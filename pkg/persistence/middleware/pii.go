package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
)

// Mask replaces redacted values in persisted memory.
const Mask = "***"

type piiMiddleware struct {
	next     ports.MemoryStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the patterns
// before they reach the store. The engine's in-memory copy is left untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.MemoryStore) ports.MemoryStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, runID string, memory *domain.SharedMemory) error {
	masked := domain.NewSharedMemory()
	memory.Range(func(key string, value any) bool {
		if m.matches(key) {
			masked.Set(key, Mask)
			return true
		}
		if sub, ok := value.(map[string]any); ok {
			value = m.maskMap(sub)
		}
		masked.Set(key, value)
		return true
	})
	return m.next.Save(ctx, runID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.SharedMemory, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// maskMap returns a masked copy of in; nested maps are copied too.
func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case m.matches(k):
			out[k] = Mask
		default:
			if sub, ok := v.(map[string]any); ok {
				v = m.maskMap(sub)
			}
			out[k] = v
		}
	}
	return out
}
