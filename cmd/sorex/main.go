package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harryzorus/sorex-sub000/internal/buildpipeline"
	"github.com/harryzorus/sorex-sub000/internal/cliui"
	"github.com/harryzorus/sorex-sub000/internal/container"
	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/loader"
	"github.com/harryzorus/sorex-sub000/internal/logging"
	"github.com/harryzorus/sorex-sub000/internal/search"
	"github.com/harryzorus/sorex-sub000/internal/stopwords"
	"github.com/harryzorus/sorex-sub000/internal/wasmhost"
)

func main() {
	logging.Init()

	root := &cobra.Command{
		Use:           "sorex",
		Short:         "sorex: embeddable three-tier full-text search engine",
		Long:          "sorex builds and queries the search artifact: exact, prefix, and fuzzy lookup over a document corpus.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("sorex {{.Version}}\n")
	root.Version = versionString()

	root.AddCommand(buildCmd())
	root.AddCommand(inspectCmd())
	root.AddCommand(searchCmd())

	if err := fang.Execute(context.Background(), root); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	var input, output, stopwordsPath, configPath string
	var strict, streaming, compress, demo bool

	c := &cobra.Command{
		Use:   "build",
		Short: "Build a search artifact from a manifest of input documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			// viper binds flags plus an optional config file for build
			// options (SPEC_FULL §3 "Configuration"); no environment
			// variables are read here — the only env var this program
			// recognizes anywhere is SOREX_LOG_LEVEL (spec §6).
			v := viper.New()
			v.BindPFlag("input", cmd.Flags().Lookup("input"))
			v.BindPFlag("output", cmd.Flags().Lookup("output"))
			v.BindPFlag("stopwords", cmd.Flags().Lookup("stopwords"))
			v.BindPFlag("strict", cmd.Flags().Lookup("strict"))
			v.BindPFlag("streaming", cmd.Flags().Lookup("streaming"))
			v.BindPFlag("compress-runtime", cmd.Flags().Lookup("compress-runtime"))
			if configPath != "" {
				v.SetConfigFile(configPath)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("load config %q: %w", configPath, err)
				}
			}

			outDir := v.GetString("output")
			if strings.TrimSpace(outDir) == "" {
				return errors.New("missing --output")
			}

			var manifest *docmodel.Manifest
			var docs []*docmodel.Document
			var err error
			if demo {
				manifest = &docmodel.Manifest{}
				docs = docmodel.DemoCorpus()
				cliui.Info(os.Stdout, "demo corpus", fmt.Sprintf("%d built-in documents (--input ignored)", len(docs)))
			} else {
				inDir := v.GetString("input")
				if strings.TrimSpace(inDir) == "" {
					return errors.New("missing --input; pass --demo to build the built-in sample corpus instead")
				}
				manifestPath := filepath.Join(inDir, "manifest.json")
				manifest, docs, err = loadManifest(manifestPath)
				if err != nil {
					return fmt.Errorf("load manifest: %w", err)
				}
			}

			stop := stopwords.Empty()
			if sp := v.GetString("stopwords"); sp != "" {
				stop, err = stopwords.Load(sp)
				if err != nil {
					return fmt.Errorf("load stopwords: %w", err)
				}
			}
			strict = v.GetBool("strict")
			streaming = v.GetBool("streaming")
			compress = v.GetBool("compress-runtime")

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			layout := container.LayoutLegacy
			if streaming {
				layout = container.LayoutStreaming
			}
			opts := buildpipeline.Options{Layout: layout, Strict: strict, CompressRuntime: compress}

			indexes := manifest.Indexes
			if len(indexes) == 0 {
				indexes = []docmodel.IndexDef{{Name: "index", Include: "*"}}
			}
			for _, def := range indexes {
				selected := docs
				if def.Include != "*" && def.Include != "" {
					selected = nil
					for _, d := range docs {
						if def.Matches(d) {
							selected = append(selected, d)
						}
					}
				}

				spinner := cliui.NewSpinner(os.Stdout, fmt.Sprintf("building %q over %d documents...", def.Name, len(selected)))
				data, err := buildpipeline.Build(selected, stop, opts)
				spinner.Stop()
				if err != nil {
					return fmt.Errorf("build %q: %w", def.Name, err)
				}

				outPath := filepath.Join(outDir, def.Name+".sorexdb")
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return err
				}

				cliui.Header(os.Stdout, fmt.Sprintf("Build complete: %s", def.Name))
				cliui.Info(os.Stdout, "documents", len(selected))
				cliui.Info(os.Stdout, "artifact", outPath)
				cliui.Info(os.Stdout, "size", fmt.Sprintf("%d bytes", len(data)))
			}
			return nil
		},
	}

	c.Flags().StringVar(&configPath, "config", "", "Optional config file (YAML/JSON/TOML) supplying defaults for the other build flags")
	c.Flags().StringVar(&input, "input", "", "Directory containing manifest.json and documents")
	c.Flags().StringVar(&output, "output", ".", "Output directory for the built artifact")
	c.Flags().StringVar(&stopwordsPath, "stopwords", "", "Optional stop-word list file")
	c.Flags().BoolVar(&strict, "strict", false, "Run invariant verification before finalizing the artifact")
	c.Flags().BoolVar(&streaming, "streaming", false, "Use the streaming (runtime-first) container layout")
	c.Flags().BoolVar(&compress, "compress-runtime", false, "zstd-compress the embedded runtime section")
	c.Flags().BoolVar(&demo, "demo", false, "Build the built-in sample corpus instead of reading --input")
	return c
}

func inspectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print a built artifact's header and section sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			art, err := container.Read(data)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			cliui.Header(os.Stdout, "Artifact")
			cliui.Info(os.Stdout, "version", art.Header.Version)
			cliui.Info(os.Stdout, "flags", fmt.Sprintf("0x%02x", art.Header.Flags))
			cliui.Info(os.Stdout, "documents", art.Header.DocCount)
			cliui.Info(os.Stdout, "terms", art.Header.TermCount)
			cliui.Info(os.Stdout, "vocab bytes", art.Header.VocabLen)
			cliui.Info(os.Stdout, "suffix array bytes", art.Header.SALen)
			cliui.Info(os.Stdout, "postings bytes", art.Header.PostingsLen)
			cliui.Info(os.Stdout, "skip bytes", art.Header.SkipLen)
			cliui.Info(os.Stdout, "section table bytes", art.Header.SectionTableLen)
			cliui.Info(os.Stdout, "fuzzy DFA bytes", art.Header.LevDFALen)
			cliui.Info(os.Stdout, "document metadata bytes", art.Header.DocsLen)
			cliui.Info(os.Stdout, "dictionary bytes", art.Header.DictTableLen)
			cliui.Info(os.Stdout, "runtime bytes", art.Header.WasmLen)
			cliui.Info(os.Stdout, "crc32", fmt.Sprintf("%08x", binary.LittleEndian.Uint32(data[len(data)-8:])))
			if art.Header.Flags&container.FlagRuntimeCompressed != 0 {
				cliui.Info(os.Stdout, "runtime compressed", true)
			}
			return nil
		},
	}
	return c
}

func searchCmd() *cobra.Command {
	var limit int
	var wasm bool

	c := &cobra.Command{
		Use:   "search <artifact> <query>",
		Short: "Run a query against a built artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			idx, err := loader.Load(data)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if wasm {
				if len(idx.Wasm) == 0 {
					cliui.Warn(os.Stdout, "--wasm requested but the artifact carries no embedded runtime; falling back to the native searcher")
				} else {
					results, err := wasmhost.Run(ctx, idx.Wasm, args[0], args[1], limit)
					if err != nil {
						return &loader.Error{Kind: loader.ErrKindRuntimeInstantiationFailed, Err: fmt.Errorf("search --wasm: %w", err)}
					}
					printResults(results)
					return nil
				}
			}

			s := search.NewSearcher(idx)
			sess := s.Search(search.ParseQuery(args[1]), limit)

			for {
				results, more := sess.Next(ctx)
				for _, r := range results {
					label := r.Title
					if r.SectionID != "" {
						label = fmt.Sprintf("%s#%s", label, r.SectionID)
					}
					fmt.Fprintf(os.Stdout, "%d\t%.3f\t%s\t%s\t%s\n", r.DocID, r.Score, r.Tier, label, r.Href)
				}
				if !more {
					break
				}
			}
			return nil
		},
	}
	c.Flags().IntVar(&limit, "limit", 10, "Maximum results to return")
	c.Flags().BoolVar(&wasm, "wasm", false, "Prefer the embedded sandboxed runtime when available")
	return c
}

// printResults renders wasmhost.Run's output in the same tab-separated
// shape the native path prints, so --wasm output is a drop-in comparison.
func printResults(results []wasmhost.Result) {
	for _, r := range results {
		label := r.Title
		if r.SectionID != "" {
			label = fmt.Sprintf("%s#%s", label, r.SectionID)
		}
		fmt.Fprintf(os.Stdout, "%d\t%.3f\t%s\t%s\t%s\n", r.DocID, r.Score, r.Tier, label, r.Href)
	}
}

func loadManifest(path string) (*docmodel.Manifest, []*docmodel.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var manifest docmodel.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, nil, err
	}
	docs := make([]*docmodel.Document, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, nil, err
		}
		var doc docmodel.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f, err)
		}
		docs = append(docs, &doc)
	}
	return &manifest, docs, nil
}

// versionString is fixed at "dev" for local/source builds; a release
// process can override it with -ldflags, not an environment variable —
// SOREX_LOG_LEVEL is the only environment variable this program reads
// (spec §6).
func versionString() string {
	return "dev"
}
