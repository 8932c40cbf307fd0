package discovery

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/nvnmos/internal/logger"
	"github.com/NVIDIA/nvnmos/pkg/config"
	"github.com/NVIDIA/nvnmos/pkg/health"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// Agent mirrors a node's resources to a discovered registry and pulls
// IS-09 system-global configuration back in (spec section 4.7
// "DiscoveryAgent"). The outward and inward halves run as independent
// goroutines started by Run; each re-discovers its own registry on
// sustained failure.
type Agent struct {
	NodeID uuid.UUID

	NodeStore *resource.Store

	Registry       RegistryClient
	RegistryResolv Resolver

	SystemAPI      SystemAPIClient
	SystemResolv   Resolver
	ConfigStore    *config.Store

	Health *health.Check
	Log    *logger.Logger

	// HeartbeatInterval overrides config.Store's interval when non-zero;
	// tests set this to avoid waiting on the default.
	HeartbeatInterval time.Duration
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

var registerOrder = []resource.Type{
	resource.TypeNode,
	resource.TypeDevice,
	resource.TypeSource,
	resource.TypeFlow,
	resource.TypeSender,
	resource.TypeReceiver,
}

// Run drives outward mirroring/heartbeat and inward config polling
// until ctx is cancelled. Both loops restart on error with exponential
// backoff, re-resolving the registry/system API each time in case the
// prior endpoint has gone away.
func (a *Agent) Run(ctx context.Context) {
	go a.runOutward(ctx)
	if a.SystemAPI != nil && a.SystemResolv != nil {
		go a.runInward(ctx)
	}
}

func (a *Agent) runOutward(ctx context.Context) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		base, err := a.RegistryResolv.Discover(ctx)
		if err != nil {
			a.warn("registry discovery failed", err)
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}

		if err := a.registerAll(ctx, base); err != nil {
			a.warn("initial registration failed", err)
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}
		backoff = minBackoff
		a.info("registered with discovered registry")

		if err := a.mirrorAndHeartbeat(ctx, base); err != nil {
			a.warn("registry session ended, re-discovering", err)
			if a.Health != nil {
				a.Health.RecordHeartbeatFailure(err)
			}
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}
		return // ctx cancelled cleanly
	}
}

// registerAll walks the node's own resources in dependency order
// (Node before Device before its children) and POSTs each, mirroring
// how the registration API expects parents registered first.
func (a *Agent) registerAll(ctx context.Context, base string) error {
	for _, typ := range registerOrder {
		for _, r := range a.NodeStore.Iter(typ) {
			body, err := renderResourceBody(r)
			if err != nil {
				return err
			}
			if err := a.Registry.Register(ctx, base, typ, body); err != nil {
				return err
			}
		}
	}
	return nil
}

// mirrorAndHeartbeat watches NodeStore for incremental changes and
// runs the health heartbeat, both against the same registry base,
// until either fails or ctx is cancelled.
func (a *Agent) mirrorAndHeartbeat(ctx context.Context, base string) error {
	changes := a.NodeStore.Watch(32)
	interval := a.HeartbeatInterval
	if interval == 0 && a.ConfigStore != nil {
		interval = a.ConfigStore.Get().HeartbeatInterval()
	}
	if interval == 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-changes:
			if err := a.mirrorChange(ctx, base, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if err := a.Registry.Heartbeat(ctx, base, a.NodeID.String()); err != nil {
				return err
			}
			if a.Health != nil {
				a.Health.UpdateComponentStatus("discovery", true, "heartbeat ok")
			}
		}
	}
}

func (a *Agent) mirrorChange(ctx context.Context, base string, ev resource.ChangeEvent) error {
	r, err := a.NodeStore.Find(ev.ID, ev.Type)
	if err != nil {
		// Resource no longer exists: mirror the deletion.
		return a.Registry.Unregister(ctx, base, ev.Type, ev.ID.String())
	}
	body, err := renderResourceBody(r)
	if err != nil {
		return err
	}
	return a.Registry.Register(ctx, base, ev.Type, body)
}

// runInward periodically fetches the IS-09 system-global resource and
// merges it into ConfigStore (spec section 4.7 "inward side").
func (a *Agent) runInward(ctx context.Context) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		base, err := a.SystemResolv.Discover(ctx)
		if err != nil {
			a.warn("system api discovery failed", err)
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}

		raw, err := a.SystemAPI.FetchSystemGlobal(ctx, base)
		if err != nil {
			a.warn("system-global fetch failed", err)
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}
		sg, err := config.DecodeSystemGlobal(raw)
		if err != nil {
			a.warn("system-global decode failed", err)
			backoff = a.sleepBackoff(ctx, backoff)
			continue
		}
		a.ConfigStore.Merge(sg)
		backoff = minBackoff

		interval := a.ConfigStore.Get().HeartbeatInterval()
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// sleepBackoff sleeps the current backoff duration (or until ctx is
// cancelled) and returns the next, doubled and capped, duration.
func (a *Agent) sleepBackoff(ctx context.Context, current time.Duration) time.Duration {
	select {
	case <-ctx.Done():
	case <-time.After(current):
	}
	next := time.Duration(math.Min(float64(current*2), float64(maxBackoff)))
	return next
}

func (a *Agent) warn(msg string, err error) {
	if a.Log != nil {
		a.Log.Warn(msg, "error", err.Error())
	}
}

func (a *Agent) info(msg string) {
	if a.Log != nil {
		a.Log.Info(msg)
	}
}
