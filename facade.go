package nvnmos

import (
	"context"
	"sync"
	"time"

	"github.com/NVIDIA/nvnmos/internal/logger"
	"github.com/NVIDIA/nvnmos/pkg/api"
	"github.com/NVIDIA/nvnmos/pkg/config"
	"github.com/NVIDIA/nvnmos/pkg/connection"
	"github.com/NVIDIA/nvnmos/pkg/discovery"
	"github.com/NVIDIA/nvnmos/pkg/health"
	"github.com/NVIDIA/nvnmos/pkg/node"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// Node is an embedding host's handle onto a running NMOS node (spec
// section 6 "Embedding API": create/destroy/add/remove/activate).
type Node struct {
	mu sync.Mutex

	log    *logger.Logger
	health *health.Check

	nodeStore *resource.Store
	connStore *resource.Store
	model     *node.Model
	engine    *connection.Engine

	server      *api.Server
	agentCancel context.CancelFunc
}

// Create constructs and starts a node from cfg. On any validation or
// startup failure it returns (nil, false) after delivering the error
// through cfg.OnLog, per the facade's external contract (spec section
// 7: "all exceptional paths at the embedding boundary collapse to a
// boolean false return").
func Create(cfg Config) (*Node, bool) {
	if err := cfg.validate(); err != nil {
		deliverLog(cfg.OnLog, "facade", int(logger.SeverityError), err.Error())
		return nil, false
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Categories: cfg.LogCategories,
		Callback: func(categories string, level logger.Severity, message string) {
			deliverLog(cfg.OnLog, categories, int(level), message)
		},
	})
	if err != nil {
		deliverLog(cfg.OnLog, "facade", int(logger.SeverityFatal), err.Error())
		return nil, false
	}

	nodeStore := resource.New()
	connStore := resource.New()

	settings := node.Settings{
		Seed:           cfg.Seed,
		Hostname:       cfg.Hostname,
		HTTPPort:       cfg.HTTPPort,
		Label:          cfg.Label,
		Description:    cfg.Description,
		Manufacturer:   cfg.Manufacturer,
		Product:        cfg.Product,
		InstanceID:     cfg.InstanceID,
		Functions:      cfg.Functions,
		HostInterfaces: cfg.nodeInterfaces(),
	}
	m := node.NewModel(settings, nodeStore, connStore, log.WithComponent("node-model"))
	if err := m.Init(); err != nil {
		log.Error("init node model", err)
		return nil, false
	}

	healthCheck := health.NewCheck(&health.Config{Enabled: true, CheckInterval: 10 * time.Second})

	var onActive connection.ActivationCallback
	if cfg.OnActivate != nil {
		onActive = connection.ActivationCallback(cfg.OnActivate)
	}
	engine := connection.NewEngine(connStore, nil, onActive, log.WithComponent("connection-engine"))

	n := &Node{
		log:       log,
		health:    healthCheck,
		nodeStore: nodeStore,
		connStore: connStore,
		model:     m,
		engine:    engine,
	}

	for _, sdpText := range cfg.InitialSenders {
		if _, ok := n.AddSender(sdpText); !ok {
			log.Warn("failed to add initial sender from config")
		}
	}
	for _, sdpText := range cfg.InitialReceivers {
		if _, ok := n.AddReceiver(sdpText); !ok {
			log.Warn("failed to add initial receiver from config")
		}
	}

	if cfg.ListenAddr != "" {
		n.server = api.New(api.Config{
			Addr:      cfg.ListenAddr,
			NodeStore: nodeStore,
			ConnStore: connStore,
			Model:     m,
			Engine:    engine,
			Logger:    log.WithComponent("node-api"),
			Health:    healthCheck,
			Auth:      cfg.Auth,
		})
		go func() {
			if err := n.server.Start(); err != nil {
				log.Error("node api server stopped", err)
			}
		}()
	}

	if cfg.RegistryEnabled {
		ctx, cancel := context.WithCancel(context.Background())
		n.agentCancel = cancel
		agent := &discovery.Agent{
			NodeID:         m.NodeID(),
			NodeStore:      nodeStore,
			Registry:       discovery.NewHTTPRegistryClient(),
			RegistryResolv: discovery.NewResolver(cfg.Hostname),
			SystemAPI:      discovery.NewHTTPSystemAPIClient(),
			SystemResolv:   discovery.NewSystemResolver(cfg.Hostname),
			ConfigStore:    config.NewStore(config.Settings{Hostname: cfg.Hostname, Seed: cfg.Seed, HTTPPort: cfg.HTTPPort}),
			Health:         healthCheck,
			Log:            log.WithComponent("discovery"),
		}
		agent.Run(ctx)
	}

	return n, true
}

// Destroy stops the node's HTTP server and discovery agent. It always
// succeeds unless shutdown itself errors, matching the embedding
// API's boolean-return convention.
func Destroy(n *Node) bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	ok := true
	if n.agentCancel != nil {
		n.agentCancel()
	}
	if n.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.server.Stop(ctx); err != nil {
			n.log.Error("stop node api server", err)
			ok = false
		}
	}
	return ok
}

// AddSender parses sdpText and publishes the resulting Source/Flow/
// Sender resources, returning the assigned internal id.
func (n *Node) AddSender(sdpText string) (string, bool) {
	if sdpText == "" {
		n.log.Error("add sender", ErrEmptySDP)
		return "", false
	}
	id, err := n.model.AddSender(sdpText)
	if err != nil {
		n.log.Error("add sender", err)
		return "", false
	}
	return id, true
}

// AddReceiver parses sdpText and publishes the resulting Receiver
// resource, returning the assigned internal id.
func (n *Node) AddReceiver(sdpText string) (string, bool) {
	if sdpText == "" {
		n.log.Error("add receiver", ErrEmptySDP)
		return "", false
	}
	id, err := n.model.AddReceiver(sdpText)
	if err != nil {
		n.log.Error("add receiver", err)
		return "", false
	}
	return id, true
}

// RemoveSender erases the sender and its Flow/Source (spec section 8
// "Cascade").
func (n *Node) RemoveSender(internalID string) bool {
	if internalID == "" {
		n.log.Error("remove sender", ErrEmptyInternalID)
		return false
	}
	if err := n.model.RemoveSender(internalID); err != nil {
		n.log.Error("remove sender", err)
		return false
	}
	return true
}

// RemoveReceiver erases the receiver and its connection twin; a
// receiver has no Flow or Source of its own.
func (n *Node) RemoveReceiver(internalID string) bool {
	if internalID == "" {
		n.log.Error("remove receiver", ErrEmptyInternalID)
		return false
	}
	if err := n.model.RemoveReceiver(internalID); err != nil {
		n.log.Error("remove receiver", err)
		return false
	}
	return true
}

// Activate performs a host-initiated activation of the sender or
// receiver named by internalID, bypassing IS-05 PATCH (spec section
// 4.5 "host-initiated activation"). sdpText empty deactivates.
func (n *Node) Activate(internalID string, sdpText string) bool {
	if internalID == "" {
		n.log.Error("activate", ErrEmptyInternalID)
		return false
	}
	if err := n.engine.HostActivate(internalID, sdpText); err != nil {
		n.log.Error("activate", err)
		return false
	}
	return true
}

func deliverLog(cb LogCallback, categories string, level int, message string) {
	if cb != nil {
		cb(categories, level, message)
	}
}
