// Package bridge exposes a transceiver to the network.
//
// The bridge is an HTTP server (optionally TLS) with these routes:
//
//	/events   websocket; every decoded event and diagnostic as a JSON Envelope
//	/command  websocket; JSON CommandRequest in, CommandResponse out
//	/metrics  Prometheus metrics (when a registry is configured)
//	/healthz  JSON health summary
//
// An events subscriber receives messages such as:
//
//	{"kind":"lighting5","time":"...","event":{"id":"0x0A0B0C","unitcode":1,"command":"On",...}}
//
// A command client sends:
//
//	{"id":"1","op":"light-on","device":"hallway"}
//
// and receives, after the bytes reach the transceiver:
//
//	{"id":"1","op":"light-on","seq":4,"written":true}
//
// The seq value is the one the transceiver echoes in the matching
// "response" envelope on /events. The bridge does not correlate or retry.
//
// # Usage Example
//
//	srv, err := bridge.New(bridge.Config{Addr: ":8080", Advertise: true, Name: "rfxcom"}, tx,
//	    bridge.WithMetrics(reg, m),
//	    bridge.WithResolver(cfg.ResolveDevice),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Slow event subscribers are disconnected instead of blocking the
// transceiver read loop.
package bridge
