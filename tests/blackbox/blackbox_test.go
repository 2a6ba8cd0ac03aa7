package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	cleanup := func() { _ = ln.Close() }
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port, cleanup
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	return filepath.Dir(filepath.Dir(bbDir))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	outDir := t.TempDir()
	binPath := filepath.Join(outDir, "llm-worker")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/llm-worker")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string
}

func startServer(t *testing.T, bin string, port int) *serverProc {
	t.Helper()
	addr := fmt.Sprintf(":%d", port)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "--addr", addr, "--models-dir", t.TempDir())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	sp := &serverProc{cmd: cmd, base: base}
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return sp
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postWorker(t *testing.T, base string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, base+"/worker", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

// events parses an NDJSON body into generic maps.
func events(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", string(line), err)
		}
		out = append(out, m)
	}
	return out
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, port)

	// /healthz
	resp, body := get(t, sp.base+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz %d %s", resp.StatusCode, string(body))
	}

	// /models lists the built-in presets
	resp, body = get(t, sp.base+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/models content-type=%s", ct)
	}
	var modelsResp struct {
		Models map[string]struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		t.Fatalf("/models json: %v body=%s", err, string(body))
	}
	if _, ok := modelsResp.Models["smollm2-360m"]; !ok {
		t.Fatalf("expected built-in presets, got %s", string(body))
	}

	// /readyz is 503 before any model is loaded
	resp, body = get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, string(body))
	}

	// check reports the backend state; without CGO the adapter is a stub
	resp, body = postWorker(t, sp.base, []byte(`{"type":"check"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check %d %s", resp.StatusCode, string(body))
	}
	evs := events(t, body)
	if len(evs) != 1 || evs[0]["status"] != "success" {
		t.Fatalf("check events: %v", evs)
	}

	// generateChat before initialize fails with a protocol error event,
	// not an HTTP error
	resp, body = postWorker(t, sp.base, []byte(`{"type":"generateChat","data":{"message":"hi"}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generateChat %d %s", resp.StatusCode, string(body))
	}
	evs = events(t, body)
	last := evs[len(evs)-1]
	if last["status"] != "error" {
		t.Fatalf("expected terminal error event, got %v", evs)
	}

	// unknown request types are answered, never dropped
	resp, body = postWorker(t, sp.base, []byte(`{"type":"frobnicate"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown type %d %s", resp.StatusCode, string(body))
	}
	evs = events(t, body)
	if len(evs) != 1 || evs[0]["status"] != "error" {
		t.Fatalf("unknown type events: %v", evs)
	}

	// /status
	resp, body = get(t, sp.base+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, string(body))
	}
	var statusResp struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &statusResp); err != nil {
		t.Fatalf("/status json: %v body=%s", err, string(body))
	}
	if statusResp.State != "uninitialized" {
		t.Fatalf("state = %q", statusResp.State)
	}
}

func TestBlackbox_WorkerRejectsMalformedRequests(t *testing.T) {
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, port)

	resp, _ := postWorker(t, sp.base, []byte(`{not json`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", resp.StatusCode)
	}

	resp, _ = postWorker(t, sp.base, []byte(`{"id":"x"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing type status = %d", resp.StatusCode)
	}
}
