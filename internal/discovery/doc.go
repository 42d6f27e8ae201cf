// Package discovery advertises and finds rfxcom event bridges over mDNS.
//
// A bridge started with advertising enabled registers itself as an
// "_rfxcom._tcp" service. Clients on the same network segment can then
// locate it without knowing its address and connect to its websocket
// endpoints. RF devices themselves are not discovered here: they are only
// known through the events the transceiver receives.
//
// # Usage Example
//
//	bridges, err := discovery.ScanForBridges(3 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, b := range bridges {
//	    fmt.Printf("%s events at %s\n", b.Instance, b.EventsURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridge and client must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
