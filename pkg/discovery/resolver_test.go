package discovery

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewResolverPicksMulticastForDotLocal(t *testing.T) {
	r := NewResolver("my-node.local")
	_, ok := r.(*MulticastResolver)
	require.True(t, ok)
}

func TestNewResolverPicksSRVForUnicast(t *testing.T) {
	r := NewResolver("my-node.studio.example.com")
	srv, ok := r.(*SRVResolver)
	require.True(t, ok)
	require.Equal(t, "studio.example.com", srv.Domain)
	require.Equal(t, "nmos-register", srv.Service)
}

func TestSRVResolverReturnsLowestPriorityTarget(t *testing.T) {
	r := &SRVResolver{
		Domain: "studio.example.com",
		lookup: func(service, proto, name string) (string, []*net.SRV, error) {
			return "", []*net.SRV{
				{Target: "registry-b.studio.example.com.", Port: 8080, Priority: 10},
				{Target: "registry-a.studio.example.com.", Port: 8080, Priority: 0},
			}, nil
		},
	}
	base, err := r.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://registry-a.studio.example.com:8080", base)
}

func TestSRVResolverPropagatesLookupError(t *testing.T) {
	r := &SRVResolver{
		Domain: "studio.example.com",
		lookup: func(service, proto, name string) (string, []*net.SRV, error) {
			return "", nil, errors.New("no such host")
		},
	}
	_, err := r.Discover(context.Background())
	require.Error(t, err)
}

func TestMulticastResolverWithoutBrowserErrors(t *testing.T) {
	r := &MulticastResolver{}
	_, err := r.Discover(context.Background())
	require.Error(t, err)
}

func TestMulticastResolverUsesSuppliedBrowser(t *testing.T) {
	r := &MulticastResolver{
		Browse: func(ctx context.Context) (string, error) {
			return "http://registry.local:8080", nil
		},
	}
	base, err := r.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://registry.local:8080", base)
}
