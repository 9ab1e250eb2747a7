package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/transit/pkg/adapters/redis"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		action  redis.GateAction
		id      domain.GateID
		wantErr bool
	}{
		{payload: "hold:after-unload", action: redis.ActionHold, id: domain.GateAfterUnload},
		{payload: "release:before-activation", action: redis.ActionRelease, id: domain.GateBeforeActivation},
		{payload: "release:", wantErr: true},
		{payload: "open:after-unload", wantErr: true},
		{payload: "garbage", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			action, id, err := redis.ParseCommand(tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, redis.ErrBadCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.id, id)
		})
	}
}

func startBridge(t *testing.T, bridge *redis.GateBridge) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestGateBridge_HoldRelease(t *testing.T) {
	_, client := newClient(t)
	gates := gate.NewRegistry[domain.GateID]()
	bridge := redis.NewGateBridge(client, gates)
	startBridge(t, bridge)

	select {
	case <-bridge.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never subscribed")
	}

	ctx := context.Background()
	require.NoError(t, bridge.Publish(ctx, redis.ActionHold, domain.GateBeforeActivation))
	assert.Eventually(t, func() bool { return gates.IsHeld(domain.GateBeforeActivation) }, time.Second, 5*time.Millisecond)

	waited := make(chan error, 1)
	go func() { waited <- gates.Wait(ctx, domain.GateBeforeActivation) }()

	require.NoError(t, bridge.Publish(ctx, redis.ActionRelease, domain.GateBeforeActivation))
	select {
	case err := <-waited:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait was not released over pub/sub")
	}
	assert.False(t, gates.IsHeld(domain.GateBeforeActivation))
}

func TestGateBridge_IgnoresMalformedCommands(t *testing.T) {
	_, client := newClient(t)
	gates := gate.NewRegistry[domain.GateID]()
	bridge := redis.NewGateBridge(client, gates, redis.WithChannel("custom:gates"))
	startBridge(t, bridge)
	<-bridge.Ready()

	ctx := context.Background()
	require.NoError(t, client.Publish(ctx, "custom:gates", "explode").Err())
	require.NoError(t, bridge.Publish(ctx, redis.ActionHold, domain.GateAfterUnload))
	assert.Eventually(t, func() bool { return gates.IsHeld(domain.GateAfterUnload) }, time.Second, 5*time.Millisecond)
}

func TestGateBridge_SubscribesAfterBrokerComesBack(t *testing.T) {
	mr, client := newClient(t)
	mr.Close()

	gates := gate.NewRegistry[domain.GateID]()
	bridge := redis.NewGateBridge(client, gates, redis.WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(10 * time.Millisecond)
	}))
	startBridge(t, bridge)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, mr.Restart())

	select {
	case <-bridge.Ready():
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not recover after broker restart")
	}
}
