package nvnmos

import (
	"errors"

	"github.com/NVIDIA/nvnmos/pkg/api"
	"github.com/NVIDIA/nvnmos/pkg/node"
)

var (
	// ErrMissingSeed is returned by Create when Config.Seed is empty;
	// IdGen cannot derive stable identity without it.
	ErrMissingSeed = errors.New("nvnmos: seed is required")
	// ErrMissingHostname is returned by Create when Config.Hostname is
	// empty.
	ErrMissingHostname = errors.New("nvnmos: hostname is required")
	// ErrInvalidHTTPPort is returned by Create when Config.HTTPPort is
	// out of the valid TCP port range.
	ErrInvalidHTTPPort = errors.New("nvnmos: http port must be between 1 and 65535")
	// ErrEmptySDP is returned by AddSender/AddReceiver/Activate when
	// given an empty SDP text where one is required.
	ErrEmptySDP = errors.New("nvnmos: sdp text must not be empty")
	// ErrEmptyInternalID is returned by RemoveSender/RemoveReceiver/
	// Activate when given an empty internal id.
	ErrEmptyInternalID = errors.New("nvnmos: internal id must not be empty")
)

// HostInterface names one network interface available to bind
// senders/receivers to, identical in shape to node.HostInterface so
// hosts never need to import pkg/node directly.
type HostInterface struct {
	Name    string
	Address string
}

// Config is the embedding API's single entry point (spec section 6
// "Embedding API"): everything Create needs to bring a node up.
type Config struct {
	Seed           string
	Hostname       string
	HTTPPort       int
	HostInterfaces []HostInterface

	Label        string
	Description  string
	Manufacturer string
	Product      string
	InstanceID   string
	Functions    []string

	// InitialSenders and InitialReceivers are SDP texts to add at
	// startup, in order, matching the embedding driver's convention of
	// seeding a node from a fixed set of transport files.
	InitialSenders   []string
	InitialReceivers []string

	// ListenAddr is the NodeAPI/ConnectionAPI HTTP bind address. Empty
	// disables the HTTP surface (e.g. for tests driving the facade
	// directly).
	ListenAddr string

	// RegistryEnabled starts DiscoveryAgent's outward registration and
	// inward IS-09 config merge once the node is constructed.
	RegistryEnabled bool

	// Auth guards the IS-05 PATCH endpoints with a bearer-token check
	// (BCP-003-02 Device.controls[].authorization). Nil disables it.
	Auth *api.AuthConfig

	OnActivate ActivationCallback
	OnLog      LogCallback

	LogLevel      string
	LogCategories string
}

func (c Config) validate() error {
	if c.Seed == "" {
		return ErrMissingSeed
	}
	if c.Hostname == "" {
		return ErrMissingHostname
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return ErrInvalidHTTPPort
	}
	return nil
}

func (c Config) nodeInterfaces() []node.HostInterface {
	out := make([]node.HostInterface, 0, len(c.HostInterfaces))
	for _, hi := range c.HostInterfaces {
		out = append(out, node.HostInterface{Name: hi.Name, Address: hi.Address})
	}
	return out
}
