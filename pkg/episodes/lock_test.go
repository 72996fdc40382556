package episodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/wavebound/storyline/pkg/adapters/memory"
	"github.com/wavebound/storyline/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		_, _ = mgr.Save(ctx, "saga", fmt.Sprintf("ep-%d", i), domain.NewEmptyGraph())
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("lock leak: %d entries remaining after saves", n)
	}
}
