package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMergeHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnStatus: func(ctx context.Context, e *domain.StatusEvent) { calls = append(calls, "a:"+string(e.Status)) },
	}
	b := domain.LifecycleHooks{
		OnStatus:  func(ctx context.Context, e *domain.StatusEvent) { calls = append(calls, "b:"+string(e.Status)) },
		OnFailure: func(ctx context.Context, e *domain.StatusEvent) { calls = append(calls, "b:failure") },
	}

	merged := domain.MergeHooks(a, domain.LifecycleHooks{}, b)
	merged.OnStatus(context.Background(), &domain.StatusEvent{Status: domain.StatusComplete})
	merged.OnFailure(context.Background(), &domain.StatusEvent{Status: domain.StatusFailed})

	assert.Equal(t, []string{"a:complete", "b:complete", "b:failure"}, calls)
	assert.Nil(t, merged.OnStepStart)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.StatusComplete.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
	assert.False(t, domain.StatusUnloading.IsTerminal())
	assert.Equal(t, domain.StatusComplete, domain.RunOrder[len(domain.RunOrder)-1])
}
