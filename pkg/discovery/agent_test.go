package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/nvnmos/pkg/config"
	"github.com/NVIDIA/nvnmos/pkg/connection"
	"github.com/NVIDIA/nvnmos/pkg/node"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

var errDiscovery = errors.New("discovery: no registry found")

type fakeResolver struct {
	base string
	err  error
}

func (f *fakeResolver) Discover(ctx context.Context) (string, error) { return f.base, f.err }

type fakeRegistry struct {
	mu            sync.Mutex
	registrations []string
	unregisters   []string
	heartbeats    int
}

func (f *fakeRegistry) Register(ctx context.Context, base string, typ resource.Type, body map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, string(typ)+":"+body["id"].(string))
	return nil
}

func (f *fakeRegistry) Unregister(ctx context.Context, base string, typ resource.Type, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregisters = append(f.unregisters, string(typ)+":"+id)
	return nil
}

func (f *fakeRegistry) Heartbeat(ctx context.Context, base string, nodeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeRegistry) count() (registrations, unregisters, heartbeats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registrations), len(f.unregisters), f.heartbeats
}

func newTestAgent(t *testing.T) (*Agent, *node.Model, *fakeRegistry) {
	t.Helper()
	nodeStore := resource.New()
	connStore := resource.New()
	settings := node.Settings{
		Seed:     "agent-test:8080",
		Hostname: "agent-test.example.com",
		HTTPPort: 8080,
		Label:    "agent-test-node",
	}
	m := node.NewModel(settings, nodeStore, connStore, nil)
	require.NoError(t, m.Init())
	_ = connection.NewEngine(connStore, nil, nil, nil)

	reg := &fakeRegistry{}
	agent := &Agent{
		NodeID:            m.NodeID(),
		NodeStore:         nodeStore,
		Registry:          reg,
		RegistryResolv:    &fakeResolver{base: "http://registry.example.com:8080"},
		ConfigStore:       config.NewStore(config.Settings{}),
		HeartbeatInterval: 10 * time.Millisecond,
	}
	return agent, m, reg
}

func TestAgentRegistersExistingResourcesOnStart(t *testing.T) {
	agent, _, reg := newTestAgent(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	agent.Run(ctx)
	<-ctx.Done()

	regs, _, beats := reg.count()
	require.GreaterOrEqual(t, regs, 2, "node and device resources should have been registered")
	require.Greater(t, beats, 0, "heartbeat should have fired at least once")
}

func TestAgentMirrorsResourceChange(t *testing.T) {
	agent, m, reg := newTestAgent(t)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	agent.Run(ctx)
	time.Sleep(20 * time.Millisecond) // let initial registration land
	before, _, _ := reg.count()

	require.NoError(t, agent.NodeStore.Modify(m.DeviceID(), func(data interface{}) error {
		return nil // touching Modify alone bumps the version and fires a change event
	}))

	<-ctx.Done()
	after, _, _ := reg.count()
	require.Greater(t, after, before, "a store mutation should have been mirrored as an incremental registration")
}

func TestAgentRetriesOnDiscoveryFailure(t *testing.T) {
	agent, _, reg := newTestAgent(t)
	agent.RegistryResolv = &fakeResolver{err: errDiscovery}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	agent.Run(ctx)
	<-ctx.Done()

	regs, _, _ := reg.count()
	require.Equal(t, 0, regs, "no registration should succeed while discovery keeps failing")
}

func TestAgentInwardMergesSystemGlobal(t *testing.T) {
	agent, _, _ := newTestAgent(t)
	fakeSys := &fakeSystemAPI{raw: map[string]interface{}{"heartbeat_interval": 2}}
	agent.SystemAPI = fakeSys
	agent.SystemResolv = &fakeResolver{base: "http://system.example.com:8080"}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	agent.Run(ctx)
	<-ctx.Done()

	require.Equal(t, 2, agent.ConfigStore.Get().System.HeartbeatIntervalSeconds)
}

type fakeSystemAPI struct {
	raw map[string]interface{}
}

func (f *fakeSystemAPI) FetchSystemGlobal(ctx context.Context, base string) (map[string]interface{}, error) {
	return f.raw, nil
}
