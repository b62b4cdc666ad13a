// Command lamac drives the two-stage backend end to end: read an AST,
// compile it to SM, lower SM to x86, and hand the result to gcc to
// assemble and link against the runtime (spec §6.4). The lexer/parser that
// would turn `.lama` source text into that AST is out of scope for this
// repository, so lamac's "source" input is the AST already serialized as
// JSON by that external frontend (pkg/astjson documents the wire shape).
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"github.com/al-romanov/lama-compiler-2022/internal/buildcache"
	"github.com/al-romanov/lama-compiler-2022/internal/cliutil"
	"github.com/al-romanov/lama-compiler-2022/internal/diag"
	"github.com/al-romanov/lama-compiler-2022/pkg/astjson"
	"github.com/al-romanov/lama-compiler-2022/pkg/codegen"
	"github.com/al-romanov/lama-compiler-2022/pkg/compiler"
	"github.com/al-romanov/lama-compiler-2022/pkg/config"
	"github.com/al-romanov/lama-compiler-2022/pkg/sm"
	"github.com/al-romanov/lama-compiler-2022/pkg/token"
)

// version and buildTime identify the lamac binary itself; cliutil has no
// notion of either, so lamac owns and prints its own version banner.
const version = "0.1.0"

var buildTime = time.Now()

// versionBanner renders "lamac <version>, built <YYYY-MM-DD HH:MM>".
func versionBanner() string {
	ts := strftime.Format("%Y-%m-%d %H:%M", buildTime)
	return fmt.Sprintf("lamac %s, built %s\n", version, ts)
}

func main() {
	app := cliutil.NewApp("lamac")
	app.Synopsis = "[options] <input.ast.json> ..."
	app.Description = "Compiles a Lama AST to a native x86 executable through a stack-machine intermediate form."
	app.Authors = []string{"al-romanov"}
	app.Repository = "<https://github.com/al-romanov/lama-compiler-2022>"
	app.Since = 2022

	var (
		outFile     string
		runtimeDir  string
		emitSM      bool
		emitAST     bool
		keepAsm     bool
		useCache    bool
		verbose     bool
		showVersion bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the linked executable at <file> (defaults to the input's basename).", "file")
	fs.String(&runtimeDir, "runtime", "", "../runtime/", "Directory containing runtime.o, overridden by $LAMA_RUNTIME.", "dir")
	fs.Bool(&emitSM, "emit-sm", "S", false, "Print the compiled SM instruction listing and stop.")
	fs.Bool(&emitAST, "emit-ast", "", false, "Structurally dump the decoded AST and stop.")
	fs.Bool(&keepAsm, "keep-asm", "", true, "Keep the generated <basename>.s file after linking.")
	fs.Bool(&useCache, "cache", "", false, "Skip recompilation when the input and flags are unchanged since the last build.")
	fs.Bool(&verbose, "verbose", "v", false, "Print each pipeline stage as it runs.")
	fs.Bool(&showVersion, "version", "V", false, "Print version and build info and exit.")

	cfg := config.NewConfig()
	warningEntries, featureEntries := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if showVersion {
			fmt.Print(versionBanner())
			return nil
		}

		if len(inputFiles) == 0 {
			diag.Error(token.Pos{}, "no input files specified")
		}

		for i, entry := range warningEntries {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetWarning(config.Warning(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetWarning(config.Warning(i), false)
			}
		}
		for i, entry := range featureEntries {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetFeature(config.Feature(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetFeature(config.Feature(i), false)
			}
		}

		if dir := os.Getenv("LAMA_RUNTIME"); dir != "" {
			runtimeDir = dir
		}

		var cache *buildcache.Cache
		if useCache {
			c, err := buildcache.Open(filepath.Join(os.TempDir(), "lamac-cache"))
			if err != nil {
				diag.Error(token.Pos{}, "%v", err)
			}
			cache = c
		}

		for _, inputFile := range inputFiles {
			if err := compileOne(inputFile, outFile, runtimeDir, cfg, cache, compileOptions{
				emitSM:  emitSM,
				emitAST: emitAST,
				keepAsm: keepAsm,
				verbose: verbose,
			}); err != nil {
				diag.Error(token.Pos{}, "%v", err)
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

type compileOptions struct {
	emitSM, emitAST, keepAsm, verbose bool
}

func compileOne(inputFile, outFile, runtimeDir string, cfg *config.Config, cache *buildcache.Cache, opts compileOptions) error {
	logf := func(format string, args ...interface{}) {
		if opts.verbose {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}

	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	base = strings.TrimSuffix(base, ".ast")
	dir := filepath.Dir(inputFile)
	binaryOut := outFile
	if binaryOut == "" {
		binaryOut = filepath.Join(dir, base)
	}
	asmPath := filepath.Join(dir, base+".s")

	flagSignature := flagSignature(cfg)
	key := buildcache.Key{SourceHash: buildcache.HashSource(data), Flags: flagSignature}
	if cache != nil {
		if entry, ok := cache.Lookup(inputFile, key); ok {
			logf("cache hit for %s, reusing %s", inputFile, entry.OutPath)
			return nil
		}
	}

	logf("decoding AST from %s", inputFile)
	program, err := astjson.Decode(data)
	if err != nil {
		return err
	}

	if opts.emitAST {
		godump.Dump(program)
		return nil
	}

	logf("compiling AST to SM")
	code := compiler.Compile(program, cfg)

	if opts.emitSM {
		fmt.Print(sm.Listing(code))
		return nil
	}

	logf("lowering SM to x86")
	asmText := codegen.Generate(code, cfg)

	if err := os.WriteFile(asmPath, []byte(asmText), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", asmPath, err)
	}
	logf("wrote %s (%s)", asmPath, humanize.Bytes(uint64(len(asmText))))

	if !opts.keepAsm {
		scratch := filepath.Join(os.TempDir(), "lamac-"+uuid.NewString()+".s")
		if err := os.Rename(asmPath, scratch); err != nil {
			return fmt.Errorf("staging scratch asm: %w", err)
		}
		defer os.Remove(scratch)
		asmPath = scratch
	}

	runtimeObj := filepath.Join(runtimeDir, "runtime.o")
	cmd := exec.Command("gcc", "-g", "-m32", "-o", binaryOut, runtimeObj, asmPath)
	logf("running: %s", strings.Join(cmd.Args, " "))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gcc failed: %w\n%s", err, out)
	}

	if info, err := os.Stat(binaryOut); err == nil {
		logf("linked %s (%s)", binaryOut, humanize.Bytes(uint64(info.Size())))
	}

	if cache != nil {
		if err := cache.Store(inputFile, buildcache.Entry{
			Key:     key,
			AsmPath: asmPath,
			OutPath: binaryOut,
		}); err != nil {
			logf("build cache not updated: %v", err)
		}
	}
	return nil
}

// flagSignature is the cache-key component covering the flags that shape
// compilation: feature/warning toggles. Two builds of the same source with
// different flags must not share a cache entry.
func flagSignature(cfg *config.Config) string {
	var b strings.Builder
	for ft := config.Feature(0); ft < config.FeatCount; ft++ {
		b.WriteString(strconv.FormatBool(cfg.IsFeatureEnabled(ft)))
	}
	for wt := config.Warning(0); wt < config.WarnCount; wt++ {
		b.WriteString(strconv.FormatBool(cfg.IsWarningEnabled(wt)))
	}
	return b.String()
}
