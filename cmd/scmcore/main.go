package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/dreamware/scmcore/internal/clock"
	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/config"
	"github.com/dreamware/scmcore/internal/coordinator"
	"github.com/dreamware/scmcore/internal/eventbus"
	"github.com/dreamware/scmcore/internal/leader"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
	"github.com/dreamware/scmcore/internal/resolver"
	"github.com/dreamware/scmcore/internal/topology"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)

	log := logging.NewProduction()
	if cfg.Logging.Format != "json" {
		log = logging.NewDevelopment()
	}
	logging.SetGlobal(log)

	manager := buildNodeManager(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Run(ctx)
	defer manager.Close()

	router := newAdminRouter(manager)
	httpSrv := &http.Server{
		Addr:              cfg.Admin.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("admin surface listening", "addr", cfg.Admin.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("admin surface failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Info("scmcore stopped")
}

func buildNodeManager(cfg *config.Config, log *logging.Logger) *coordinator.NodeManager {
	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: cfg.Etcd.DialTimeout,
	})
	var scm ports.SCMContext
	if err != nil {
		log.Warn("etcd client unavailable, running as a pinned single-node leader", "error", err)
		scm = leader.NewStatic(true, 1)
	} else {
		election, err := leader.NewElectionContext(etcdClient, cfg.Etcd.ElectionKey, log)
		if err != nil {
			log.Warn("etcd election session unavailable, running as a pinned single-node leader", "error", err)
			scm = leader.NewStatic(true, 1)
		} else {
			go func() {
				if err := election.Campaign(context.Background(), cfg.ClusterID); err != nil {
					log.Error("leader campaign failed", "error", err)
				}
			}()
			scm = election
		}
	}

	publisher, err := eventbus.NewNATSPublisher(cfg.Events.URL)
	var eventPublisher ports.EventPublisher
	var natsPublisher *eventbus.NATSPublisher
	if err != nil {
		log.Warn("NATS unavailable, publishing events in-memory only", "error", err)
		eventPublisher = eventbus.NewMemory()
	} else {
		eventPublisher = publisher
		natsPublisher = publisher
	}

	pipelines := noopPipelineManager{}
	layouts := staticLayoutVersions{softwareVersion: 3, metadataVersion: 3}

	managerCfg := coordinator.NodeManagerConfig{
		ClusterID:                  cfg.ClusterID,
		ScmID:                      cfg.ScmID,
		UseHostname:                cfg.Registry.UseHostname,
		PipelinesPerMetadataVolume: cfg.Registry.PipelinesPerMetadataVolume,
		HeavyNodePipelineLimit:     cfg.Registry.DatanodePipelineLimit,
		Health: coordinator.HealthThresholds{
			StaleThresholdMillis: cfg.Registry.StaleThreshold.Milliseconds(),
			DeadThresholdMillis:  cfg.Registry.DeadThreshold.Milliseconds(),
			ScanIntervalMillis:   cfg.Registry.ScanInterval.Milliseconds(),
		},
	}

	manager := coordinator.NewNodeManager(managerCfg, coordinator.Collaborators{
		Topology:  topology.NewStaticTopology(nil, "/default-rack"),
		Resolver:  resolver.Passthrough{UseHostname: cfg.Registry.UseHostname},
		Layouts:   layouts,
		SCM:       scm,
		Clock:     clock.Real{},
		Pipelines: pipelines,
		Publisher: eventPublisher,
	}, log)

	if natsPublisher != nil {
		subscribeCommandForDatanode(natsPublisher, manager, log)
	}

	return manager
}

// subscribeCommandForDatanode wires the inbound half of EventBridge's
// publisher/subscriber split: CommandForDatanode messages arriving on NATS
// (e.g. issued by an external placement service) are forwarded straight
// into the command queue via HandleCommandForDatanode.
func subscribeCommandForDatanode(publisher *eventbus.NATSPublisher, manager *coordinator.NodeManager, log *logging.Logger) {
	_, err := publisher.Subscribe(ports.TopicCommandForDatanode, func(event ports.Event) {
		if event.Command == nil {
			return
		}
		manager.Events.HandleCommandForDatanode(event.NodeUUID, coordinator.CommandQueueEntry{
			DNUuid:  event.NodeUUID,
			Type:    event.Command.Type,
			Term:    event.Command.Term,
			Payload: event.Command.Payload,
		})
	})
	if err != nil {
		log.Warn("CommandForDatanode subscription failed, inbound commands will not be forwarded", "error", err)
	}
}

func newAdminRouter(manager *coordinator.NodeManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.GetVersion())
	})

	r.GET("/nodes", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Table.All())
	})

	r.GET("/nodes/:uuid/status", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
			return
		}
		status, err := manager.GetNodeStatus(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	})

	r.GET("/stats/cluster", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Stats.ClusterStat())
	})

	r.GET("/stats/usage", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Stats.UsageByCategory())
	})

	r.GET("/stats/usage/ranked", func(c *gin.Context) {
		mostUsed := c.DefaultQuery("most_used", "true") == "true"
		c.JSON(http.StatusOK, manager.Stats.MostOrLeastUsed(mostUsed))
	})

	r.POST("/admin/nodes/:uuid/operational-state", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("uuid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
			return
		}
		var body struct {
			OperationalState string `json:"operational_state"`
			ExpiryEpochSec   int64  `json:"expiry_epoch_sec"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err = manager.SetNodeOperationalState(id, cluster.OperationalState(body.OperationalState), body.ExpiryEpochSec)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.GET("/admin/nodes/status", func(c *gin.Context) {
		type nodeStatusEntry struct {
			OpState string `json:"op_state"`
			Health  string `json:"health"`
		}
		out := make(map[string]nodeStatusEntry)
		for _, rec := range manager.Table.All() {
			out[rec.Identity.HostName] = nodeStatusEntry{
				OpState: string(rec.PersistedOpState),
				Health:  string(rec.Health),
			}
		}
		c.JSON(http.StatusOK, out)
	})

	return r
}
