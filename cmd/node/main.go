package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/config"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/node"
)

// demoMessage is the message type this demo binary publishes and
// subscribes to: a set of topic strings plus an opaque body.
type demoMessage struct {
	Topics []string
	Body   string
}

func demoMessageTopics(m demoMessage) []ddpubsub.Topic {
	out := make([]ddpubsub.Topic, len(m.Topics))
	for i, t := range m.Topics {
		out[i] = ddpubsub.Topic(t)
	}
	return out
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides defaults)")
	nodeID := flag.String("id", "", "node identifier")
	listenAddr := flag.String("listen", "", "libp2p listen multiaddr")
	bootstrapPeer := flag.String("bootstrap", "", "bootstrap peer multiaddr")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus metrics on")
	demoTopic := flag.String("topic", "demo", "topic this node subscribes to and periodically publishes on")
	flag.Parse()

	logger, err := logging.NewColoredLogger(logging.ComponentNode, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadConfigFromYAML(*configPath)
		if err != nil {
			logger.ComponentError(logging.ComponentNode, "failed to load config", zap.Error(err))
			os.Exit(1)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		logger.ComponentError(logging.ComponentNode, "failed to apply env overrides", zap.Error(err))
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *nodeID, *listenAddr, *bootstrapPeer)
	if err := cfg.Validate(); err != nil {
		logger.ComponentError(logging.ComponentNode, "invalid config", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promReg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(promReg)

	n, err := node.NewNode(cfg, metricsReg)
	if err != nil {
		logger.ComponentError(logging.ComponentNode, "failed to create node", zap.Error(err))
		os.Exit(1)
	}
	if err := n.Start(ctx); err != nil {
		logger.ComponentError(logging.ComponentNode, "failed to start node", zap.Error(err))
		os.Exit(1)
	}

	sub, pub, err := node.StartPubSub[demoMessage](ctx, n, demoMessageTopics)
	if err != nil {
		logger.ComponentError(logging.ComponentNode, "failed to start pubsub", zap.Error(err))
		os.Exit(1)
	}

	handle := ddpubsub.SubscriberHandle[demoMessage]{
		ID: ddpubsub.HandlerID("demo"),
		Deliver: func(m demoMessage) {
			logger.ComponentInfo(logging.ComponentNode, "received message", zap.Strings("topics", m.Topics), zap.String("body", m.Body))
		},
	}
	if err := sub.Subscribe(ctx, handle, []ddpubsub.Topic{ddpubsub.Topic(*demoTopic)}); err != nil {
		logger.ComponentError(logging.ComponentNode, "failed to subscribe", zap.Error(err))
		os.Exit(1)
	}

	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			logger.ComponentWarn(logging.ComponentNode, "metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msg := demoMessage{Topics: []string{*demoTopic}, Body: fmt.Sprintf("heartbeat from %s", n.ID())}
				if err := pub.Publish(ctx, msg); err != nil {
					logger.ComponentWarn(logging.ComponentNode, "publish failed", zap.Error(err))
				}
			}
		}
	}()

	logger.ComponentInfo(logging.ComponentNode, "node running", zap.String("peer_id", n.ID()), zap.String("topic", *demoTopic))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.ComponentInfo(logging.ComponentNode, "shutting down")
	cancel()
	if err := sub.Wait(); err != nil {
		logger.ComponentWarn(logging.ComponentNode, "error draining pubsub supervisor", zap.Error(err))
	}
	if err := n.Stop(context.Background()); err != nil {
		logger.ComponentWarn(logging.ComponentNode, "error during shutdown", zap.Error(err))
	}
}
