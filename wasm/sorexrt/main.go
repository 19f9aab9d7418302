// Command sorexrt is the embedded sandboxed runtime: compiled with
// GOOS=js GOARCH=wasm, it exposes the loader and three-tier searcher to a
// host JavaScript environment via syscall/js, so an artifact's runtime
// section can execute a query without the host implementing any search
// logic itself (spec §4.7/§4.11, §9).
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall/js"

	json "github.com/goccy/go-json"

	"github.com/harryzorus/sorex-sub000/internal/loader"
	"github.com/harryzorus/sorex-sub000/internal/search"
)

var loadedIndex *loader.Index

func main() {
	if len(os.Args) > 1 {
		runCLIParity()
		return
	}
	js.Global().Set("sorexLoad", js.FuncOf(jsLoad))
	js.Global().Set("sorexSearch", js.FuncOf(jsSearch))
	select {} // keep the wasm instance alive for callback-driven host calls
}

// runCLIParity is the entrypoint a native host drives through wazero's
// gojs shim (internal/wasmhost) instead of the syscall/js callbacks above, so
// `sorex search --wasm` can run this same compiled runtime without a JS
// engine. Args are the artifact path, the query, and the result limit; the
// matching results print to stdout as a JSON array, the same shape jsSearch
// returns to its JS caller.
func runCLIParity() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: sorexrt <artifact-path> <query> <limit>")
		os.Exit(2)
	}
	limit, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sorexrt: bad limit %q: %v\n", os.Args[3], err)
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	idx, err := loader.Load(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	s := search.NewSearcher(idx)
	sess := s.Search(search.ParseQuery(os.Args[2]), limit)
	ctx := context.Background()
	var all []search.Result
	for {
		batch, more := sess.Next(ctx)
		all = append(all, batch...)
		if !more {
			break
		}
	}

	type jsonResult struct {
		DocID     int     `json:"docId"`
		Score     float64 `json:"score"`
		Tier      string  `json:"tier"`
		Title     string  `json:"title"`
		Excerpt   string  `json:"excerpt"`
		Href      string  `json:"href"`
		SectionID string  `json:"sectionId"`
	}
	out := make([]jsonResult, len(all))
	for i, r := range all {
		out[i] = jsonResult{
			DocID: r.DocID, Score: r.Score, Tier: r.Tier.String(),
			Title: r.Title, Excerpt: r.Excerpt, Href: r.Href, SectionID: r.SectionID,
		}
	}
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// jsLoad(bytes: Uint8Array) -> {ok: bool, error?: string}
func jsLoad(_ js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorResult("sorexLoad expects exactly one Uint8Array argument")
	}
	data := uint8ArrayToBytes(args[0])
	idx, err := loader.Load(data)
	if err != nil {
		return errorResult(err.Error())
	}
	loadedIndex = idx
	result := js.Global().Get("Object").New()
	result.Set("ok", true)
	return result
}

// jsSearch(query: string, limit: number) -> {ok: bool, results?: [{docId, score, tier, title, excerpt, href, sectionId}], error?: string}
func jsSearch(_ js.Value, args []js.Value) interface{} {
	if loadedIndex == nil {
		return errorResult("sorexSearch called before sorexLoad")
	}
	if len(args) < 1 {
		return errorResult("sorexSearch expects a query string argument")
	}
	query := args[0].String()
	limit := 10
	if len(args) >= 2 && args[1].Type() == js.TypeNumber {
		limit = args[1].Int()
	}

	s := search.NewSearcher(loadedIndex)
	sess := s.Search(search.ParseQuery(query), limit)

	ctx := context.Background()
	var all []search.Result
	for {
		batch, more := sess.Next(ctx)
		all = append(all, batch...)
		if !more {
			break
		}
	}

	arr := js.Global().Get("Array").New(len(all))
	for i, r := range all {
		item := js.Global().Get("Object").New()
		item.Set("docId", r.DocID)
		item.Set("score", r.Score)
		item.Set("tier", r.Tier.String())
		item.Set("title", r.Title)
		item.Set("excerpt", r.Excerpt)
		item.Set("href", r.Href)
		item.Set("sectionId", r.SectionID)
		arr.SetIndex(i, item)
	}

	result := js.Global().Get("Object").New()
	result.Set("ok", true)
	result.Set("results", arr)
	return result
}

func errorResult(msg string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("ok", false)
	result.Set("error", msg)
	return result
}

func uint8ArrayToBytes(v js.Value) []byte {
	n := v.Get("length").Int()
	buf := make([]byte, n)
	js.CopyBytesToGo(buf, v)
	return buf
}
