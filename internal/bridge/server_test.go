package bridge

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/muurk/rfxcom/internal/metrics"
	"github.com/muurk/rfxcom/internal/transceiver"
)

var lighting5Frame = []byte{0x0A, 0x14, 0x00, 0x07, 0x0A, 0x0B, 0x0C, 0x01, 0x01, 0x00, 0x70}

// pipePort feeds device bytes to the transceiver and records its writes
type pipePort struct {
	r      *io.PipeReader
	device *io.PipeWriter
	wrote  chan []byte
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, device: w, wrote: make(chan []byte, 16)}
}

func (p *pipePort) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *pipePort) Close() error               { return p.r.Close() }
func (p *pipePort) Write(b []byte) (int, error) {
	p.wrote <- append([]byte(nil), b...)
	return len(b), nil
}

type fixture struct {
	port   *pipePort
	tx     *transceiver.Transceiver
	bridge *Server
	http   *httptest.Server
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	port := newPipePort()
	tx := transceiver.New(port)
	tx.Start(context.Background())

	reg := prometheus.NewRegistry()
	m := metrics.NewDriverMetrics(reg)
	opts = append([]Option{WithMetrics(reg, m)}, opts...)

	srv, err := New(Config{Version: "test"}, tx, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
		_ = tx.Close()
	})
	return &fixture{port: port, tx: tx, bridge: srv, http: ts, reg: reg}
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *fixture) waitForClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.bridge.Hub().Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", f.bridge.Hub().Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type envelopeJSON struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
	Error string          `json:"error"`
	Raw   string          `json:"raw"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelopeJSON {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelopeJSON
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return env
}

func TestEvents_FanOut(t *testing.T) {
	f := newFixture(t)
	a := f.dial(t, "/events")
	b := f.dial(t, "/events")
	f.waitForClients(t, 2)

	go func() { _, _ = f.port.device.Write(lighting5Frame) }()

	for i, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Kind != KindLighting5 {
			t.Errorf("client %d: kind = %q, want %q", i, env.Kind, KindLighting5)
		}
		var evt struct {
			ID       string `json:"id"`
			UnitCode int    `json:"unitcode"`
			Command  string `json:"command"`
		}
		if err := json.Unmarshal(env.Event, &evt); err != nil {
			t.Fatalf("client %d: bad event json: %v", i, err)
		}
		if evt.ID != "0x0A0B0C" || evt.UnitCode != 1 || evt.Command != "On" {
			t.Errorf("client %d: event = %+v", i, evt)
		}
	}
}

func TestEvents_Diagnostic(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "/events")
	f.waitForClients(t, 1)

	go func() { _, _ = f.port.device.Write([]byte{0x03, 0xFF, 0x00, 0x01}) }()

	env := readEnvelope(t, conn)
	if env.Kind != KindDiagnostic {
		t.Fatalf("kind = %q, want %q", env.Kind, KindDiagnostic)
	}
	if env.Raw != "0x03 0xFF 0x00 0x01" {
		t.Errorf("raw = %q", env.Raw)
	}
	if !strings.Contains(env.Error, "unhandled packet type") {
		t.Errorf("error = %q", env.Error)
	}
}

func TestCommand_LightOnByAlias(t *testing.T) {
	resolver := func(target string) (string, int, bool) {
		if target == "hall" {
			return "0x0A0B0C", 5, true
		}
		return target, 0, false
	}
	f := newFixture(t, WithResolver(resolver))
	conn := f.dial(t, "/command")

	if err := conn.WriteJSON(CommandRequest{ID: "1", Op: "light-on", Device: "hall"}); err != nil {
		t.Fatal(err)
	}

	var resp CommandResponse
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if resp.ID != "1" || resp.Error != "" || !resp.Written {
		t.Errorf("response = %+v", resp)
	}
	if resp.Seq == nil || *resp.Seq != 0 {
		t.Errorf("seq = %v, want 0", resp.Seq)
	}

	msg := <-f.port.wrote
	if msg[1] != 0x14 || msg[7] != 5 || msg[8] != 0x01 {
		t.Errorf("written = %x, want lighting5 on for unit 5", msg)
	}
}

func TestCommand_InterfaceOps(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "/command")

	for i, op := range []string{"reset", "status", "reset-tamper"} {
		if err := conn.WriteJSON(CommandRequest{Op: op}); err != nil {
			t.Fatal(err)
		}
		var resp CommandResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Written || resp.Seq == nil || *resp.Seq != i {
			t.Errorf("%s: response = %+v", op, resp)
		}
		if msg := <-f.port.wrote; msg[1] != 0x00 || int(msg[3]) != i {
			t.Errorf("%s: written = %x", op, msg)
		}
	}
}

func TestCommand_Errors(t *testing.T) {
	unit := 1
	tooBig := 300

	tests := []struct {
		name    string
		req     CommandRequest
		wantErr string
	}{
		{name: "unknown op", req: CommandRequest{Op: "dim"}, wantErr: "unknown op"},
		{name: "no device", req: CommandRequest{Op: "light-on"}, wantErr: "needs a device"},
		{name: "literal id without unit", req: CommandRequest{Op: "light-off", Device: "0x0A0B0C"}, wantErr: "needs a unit"},
		{name: "bad id", req: CommandRequest{Op: "light-on", Device: "0xZZ", Unit: &unit}, wantErr: "cannot parse device id"},
		{name: "unit out of range", req: CommandRequest{Op: "light-on", Device: "0x0A0B0C", Unit: &tooBig}, wantErr: "out of range"},
	}

	f := newFixture(t)
	conn := f.dial(t, "/command")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteJSON(tt.req); err != nil {
				t.Fatal(err)
			}
			var resp CommandResponse
			if err := conn.ReadJSON(&resp); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(resp.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", resp.Error, tt.wantErr)
			}
			if resp.Seq != nil || resp.Written {
				t.Errorf("failed command reported seq=%v written=%v", resp.Seq, resp.Written)
			}
		})
	}

	if f.tx.Sequence().Peek() != 0 {
		t.Errorf("rejected commands consumed sequence numbers: next = %d", f.tx.Sequence().Peek())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.dial(t, "/events")
	f.waitForClients(t, 1)

	resp, err := http.Get(f.http.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || health.Status != "ok" || health.Clients != 1 || health.Version != "test" {
		t.Errorf("health = %d %+v", resp.StatusCode, health)
	}

	resp, err = http.Get(f.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "rfxcom_bridge_clients 1") {
		t.Errorf("metrics missing client gauge:\n%s", body)
	}
}

func TestHealth_TransceiverClosed(t *testing.T) {
	f := newFixture(t)
	_ = f.tx.Close()

	resp, err := http.Get(f.http.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(nil)
	c := &client{remote: "slow", send: make(chan []byte, 1)}
	h.add(c)

	h.Broadcast(Envelope{Kind: KindStatus})
	h.Broadcast(Envelope{Kind: KindStatus})

	if h.Len() != 0 {
		t.Errorf("Len() = %d, slow client should be dropped", h.Len())
	}
	if _, ok := <-c.send; !ok {
		t.Error("buffered envelope lost")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}

	// Removing twice is harmless
	h.remove(c)
}

func TestStart_Shutdown(t *testing.T) {
	tx := transceiver.New(newPipePort())
	defer tx.Close()

	srv, err := New(Config{Addr: "127.0.0.1:0"}, tx)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(ctx) }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestStart_StopsWhenTransceiverEnds(t *testing.T) {
	port := newPipePort()
	tx := transceiver.New(port)
	tx.Start(context.Background())
	defer tx.Close()

	srv, err := New(Config{Addr: "127.0.0.1:0"}, tx)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(context.Background()) }()

	// The adapter is unplugged
	_ = port.device.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrTransceiverClosed) {
			t.Errorf("Start() error = %v, want ErrTransceiverClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() kept serving after the transceiver closed")
	}
}

func writeSelfSigned(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "rfxcom.local"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"rfxcom.local"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func TestNewTLSConfig(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)

	cfg, err := NewTLSConfig(certPath, keyPath)
	if err != nil {
		t.Fatalf("NewTLSConfig() error = %v", err)
	}
	info := GetTLSInfo(cfg)
	if info["enabled"] != true || info["num_certs"] != 1 {
		t.Errorf("GetTLSInfo() = %v", info)
	}

	if _, err := NewTLSConfig(certPath, filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("NewTLSConfig() with missing key should fail")
	}

	tx := transceiver.New(newPipePort())
	defer tx.Close()
	if _, err := New(Config{CertPath: certPath}, tx); err == nil {
		t.Error("New() with a cert but no key should fail")
	}
}
