// Package wasmhost drives the artifact's embedded sandboxed runtime — the
// same wasm/sorexrt binary a browser loads via syscall/js — from a native
// Go process, so `sorex search --wasm` can exercise the sandboxed runtime
// without requiring any JS engine. It uses wazero's gojs host shim, which
// implements the Go js/wasm ABI that wasm/sorexrt's syscall/js calls
// compile down to, and sandboxes the runtime's file access to the single
// directory holding the artifact being queried.
package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/tetratelabs/wazero/experimental/gojs"
)

// Result mirrors search.Result's JSON shape. It's decoded from the
// sandboxed runtime's stdout rather than imported directly: the guest
// binary and this host process never share in-memory Go types, only the
// bytes the runtime prints.
type Result struct {
	DocID     int     `json:"docId"`
	Score     float64 `json:"score"`
	Tier      string  `json:"tier"`
	Title     string  `json:"title"`
	Excerpt   string  `json:"excerpt"`
	Href      string  `json:"href"`
	SectionID string  `json:"sectionId"`
}

// Run instantiates wasmBinary (wasm/sorexrt compiled to GOOS=js
// GOARCH=wasm) under wazero and drives it through its CLI parity
// entrypoint: load the artifact at artifactPath, run query up to limit
// results, and decode the JSON array it prints to stdout. The guest only
// sees the directory containing artifactPath, not the rest of the host
// filesystem.
func Run(ctx context.Context, wasmBinary []byte, artifactPath, query string, limit int) ([]Result, error) {
	dir, name := filepath.Split(artifactPath)
	if dir == "" {
		dir = "."
	}
	guestFS := os.DirFS(dir)

	args := []string{"sorexrt", name, query, strconv.Itoa(limit)}
	var stdout, stderr bytes.Buffer
	if err := gojs.Run(ctx, &stdout, &stderr, args, nil, guestFS, wasmBinary); err != nil {
		return nil, fmt.Errorf("wasmhost: run sandboxed runtime: %w (stderr: %s)", err, stderr.String())
	}
	return parseResults(stdout.Bytes())
}

func parseResults(stdout []byte) ([]Result, error) {
	var results []Result
	if err := json.Unmarshal(stdout, &results); err != nil {
		return nil, fmt.Errorf("wasmhost: decode sandboxed runtime output: %w", err)
	}
	return results, nil
}
