// Package discovery implements DiscoveryAgent: registry discovery,
// outward registration/heartbeat mirroring, and inward IS-09
// system-global config merge (spec section 4.7).
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// Resolver finds the base URL of an NMOS registration API to mirror
// resources into. The DNS-SD mechanics themselves are an explicit
// out-of-scope collaborator (spec section 1); Resolver is the seam a
// host plugs a concrete discovery mechanism into.
type Resolver interface {
	Discover(ctx context.Context) (registryBase string, err error)
}

// SRVResolver discovers a registry via unicast DNS-SD: an SRV lookup
// for "_nmos-register._tcp" in the hostname's own domain (spec section
// 4.7, the non-".local" branch). It needs no third-party client.
type SRVResolver struct {
	Service string
	Domain  string
	lookup  func(service, proto, name string) (string, []*net.SRV, error)
}

// NewResolver returns the concrete resolver appropriate for hostname:
// a MulticastResolver stub if hostname ends in ".local" (spec section
// 4.7's mDNS branch — a host-supplied adapter, since building an mDNS
// responder/browser is out of the distilled spec's scope and the pack
// carries no mDNS client to ground one on), otherwise an SRVResolver
// rooted at hostname's parent domain, looking up "_nmos-register._tcp".
func NewResolver(hostname string) Resolver {
	return newDNSOrMulticastResolver(hostname, "nmos-register")
}

// NewSystemResolver is NewResolver's counterpart for the IS-09 System
// API, looking up "_nmos-system._tcp" instead.
func NewSystemResolver(hostname string) Resolver {
	return newDNSOrMulticastResolver(hostname, "nmos-system")
}

func newDNSOrMulticastResolver(hostname, service string) Resolver {
	if strings.HasSuffix(hostname, ".local") {
		return &MulticastResolver{}
	}
	return &SRVResolver{Service: service, Domain: parentDomain(hostname), lookup: net.LookupSRV}
}

func parentDomain(hostname string) string {
	parts := strings.SplitN(hostname, ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return hostname
}

// Discover looks up "_nmos-register._tcp.<domain>" and returns the
// highest-priority (lowest-weight-tiebreak skipped — callers retry on
// failure) target as an HTTP base URL.
func (r *SRVResolver) Discover(ctx context.Context) (string, error) {
	_, addrs, err := r.lookup(r.Service, "tcp", r.Domain)
	if err != nil {
		return "", fmt.Errorf("discovery: SRV lookup for %s: %w", r.Domain, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("discovery: no _nmos-register._tcp records for %s", r.Domain)
	}
	best := addrs[0]
	for _, a := range addrs[1:] {
		if a.Priority < best.Priority {
			best = a
		}
	}
	target := strings.TrimSuffix(best.Target, ".")
	return fmt.Sprintf("http://%s:%d", target, best.Port), nil
}

// MulticastResolver represents the ".local" mDNS browse-and-resolve
// path. A host embedding this node supplies a concrete Browse
// implementation (e.g. backed by whatever mDNS library fits its
// platform); without one, Discover reports that no registry could be
// found rather than silently falling back to unicast.
type MulticastResolver struct {
	// Browse, if set, performs the actual mDNS service browse and
	// resolve and returns a registry base URL.
	Browse func(ctx context.Context) (string, error)
}

func (r *MulticastResolver) Discover(ctx context.Context) (string, error) {
	if r.Browse == nil {
		return "", fmt.Errorf("discovery: no mDNS browser configured for .local discovery")
	}
	return r.Browse(ctx)
}
