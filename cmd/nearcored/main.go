// Command nearcored is the nearcore process entrypoint: it wires one
// client.Session, a PcpHandler, the SQLite-backed store, and the
// internal/httpapi diagnostics/control surface together, grounded on the
// teacher's server/main.go (flag parsing, store-then-wire-callbacks-then-
// serve shape, signal-driven graceful shutdown) and server/cli.go (the
// CLI-subcommand-before-flag-parse dispatch).
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"nearcore/internal/client"
	"nearcore/internal/endpointmgr"
	"nearcore/internal/flags"
	"nearcore/internal/httpapi"
	"nearcore/internal/medium"
	"nearcore/internal/pcp"
	"nearcore/internal/store"
)

// Version is the current nearcored version. Set at build time via -ldflags.
var Version = "0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		cliDB := "nearcore.db"
		if RunCLI(os.Args[1:], cliDB) {
			return
		}
	}

	apiAddr := flag.String("api-addr", ":8787", "diagnostics/control HTTP API listen address")
	dbPath := flag.String("db", "nearcore.db", "SQLite database path (empty for in-memory)")
	serviceID := flag.String("service-id", "com.nearcore.example", "service id advertised and discovered")
	clientID := flag.String("client-id", "", "stable client id (random UUID if empty)")
	strategyName := flag.String("strategy", "cluster", "connection strategy: cluster, star, or point-to-point")
	lowPower := flag.Bool("low-power", false, "advertise/discover in low-power mode")
	useStableEndpointID := flag.Bool("stable-endpoint-id", false, "request stable endpoint id across restarts")
	flag.Parse()

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("[store] %v", err)
	}
	defer st.Close()

	id := *clientID
	if id == "" {
		id = uuid.New().String()
	}

	hub := httpapi.NewHub()

	callbacks := client.Callbacks{
		OnEndpointFound: func(endpointID string, endpointInfo []byte) {
			hub.Publish(httpapi.Event{Type: "endpoint_found", EndpointID: endpointID, Timestamp: time.Now()})
		},
		OnEndpointLost: func(endpointID string) {
			hub.Publish(httpapi.Event{Type: "endpoint_lost", EndpointID: endpointID, Timestamp: time.Now()})
		},
		OnConnectionInitiated: func(endpointID string) {
			hub.Publish(httpapi.Event{Type: "connection_initiated", EndpointID: endpointID, Timestamp: time.Now()})
			recordEvent(st, id, endpointID, "connection_initiated", "")
		},
		OnConnectionAccepted: func(endpointID string) {
			hub.Publish(httpapi.Event{Type: "connection_accepted", EndpointID: endpointID, Timestamp: time.Now()})
			recordEvent(st, id, endpointID, "connection_accepted", "")
		},
		OnConnectionRejected: func(endpointID string, status int) {
			hub.Publish(httpapi.Event{Type: "connection_rejected", EndpointID: endpointID, Status: statusLabel(status), Timestamp: time.Now()})
			recordEvent(st, id, endpointID, "connection_rejected", statusLabel(status))
		},
		OnBandwidthChanged: func(endpointID string, newMedium medium.Medium) {
			hub.Publish(httpapi.Event{Type: "bandwidth_changed", EndpointID: endpointID, Medium: newMedium.String(), Timestamp: time.Now()})
			recordEvent(st, id, endpointID, "bandwidth_changed", newMedium.String())
		},
		OnDisconnected: func(endpointID string) {
			hub.Publish(httpapi.Event{Type: "disconnected", EndpointID: endpointID, Timestamp: time.Now()})
			recordEvent(st, id, endpointID, "disconnected", "")
		},
	}

	session, err := client.New(id, []byte(id), callbacks)
	if err != nil {
		log.Fatalf("[client] %v", err)
	}

	strategy, err := parseStrategy(*strategyName)
	if err != nil {
		log.Fatalf("[nearcored] %v", err)
	}

	flagSnapshot := flags.Default()
	stableIDs := client.NewStableIDCache(st, flagSnapshot.StableEndpointIDCacheTimeout)
	sink := endpointmgr.NewSink()

	handler := pcp.NewHandler(session, nullRegistry{}, strategy, flagSnapshot, stableIDs, sink, nil)
	defer handler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		slog.Info("nearcored: shutting down")
		cancel()
	}()

	opts := client.Options{
		AllowedMediums:      medium.NewSelector(medium.All...),
		LowPower:            *lowPower,
		UseStableEndpointID: *useStableEndpointID,
	}
	if status, err := handler.StartAdvertising(ctx, *serviceID, opts, []byte(id)); err != nil || status != pcp.StatusSuccess {
		slog.Warn("nearcored: start advertising failed", "status", status, "err", err)
	}
	if status, err := handler.StartListeningForIncomingConnections(ctx); err != nil || status != pcp.StatusSuccess {
		slog.Warn("nearcored: start listening failed", "status", status, "err", err)
	}

	api := httpapi.New(handler, st, hub)
	slog.Info("nearcored: diagnostics API listening", "addr", *apiAddr, "client_id", id, "service_id", *serviceID)
	if err := api.Run(ctx, *apiAddr); err != nil {
		log.Fatalf("[httpapi] %v", err)
	}
}

func parseStrategy(name string) (medium.Strategy, error) {
	switch name {
	case "cluster":
		return medium.Cluster, nil
	case "star":
		return medium.Star, nil
	case "point-to-point":
		return medium.PointToPoint, nil
	default:
		return medium.None, errUnknownStrategy(name)
	}
}

type errUnknownStrategy string

func (e errUnknownStrategy) Error() string {
	return "unknown strategy " + string(e) + " (want cluster, star, or point-to-point)"
}

func statusLabel(status int) string {
	switch status {
	case 0:
		return "success"
	default:
		return "rejected"
	}
}

func recordEvent(st *store.Store, clientID, endpointID, event, detail string) {
	if err := st.RecordEvent(context.Background(), store.AnalyticsEvent{
		ClientID:   clientID,
		EndpointID: endpointID,
		Event:      event,
		Detail:     detail,
	}); err != nil {
		slog.Debug("nearcored: record analytics event", "err", err)
	}
}
