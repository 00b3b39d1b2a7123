package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		rid := fmt.Sprintf("run-%d", i)
		_ = mgr.Save(ctx, rid, domain.NewSharedMemory())
		_ = mgr.Delete(ctx, rid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
