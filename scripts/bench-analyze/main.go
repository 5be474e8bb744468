// bench-analyze measures publish analysis throughput and heap use on a
// synthetic package with a configurable module count.
//
// Usage:
//
//	go run ./scripts/bench-analyze --modules 500 --runs 5 \
//	  --profile-dir docs/profiles/analyze-500
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/ids"
)

func main() {
	modules := flag.Int("modules", 200, "Number of modules in the synthetic package")
	runs := flag.Int("runs", 3, "Analysis runs to time")
	workers := flag.Int("workers", 0, "Graph build workers (0 = default)")
	profileDir := flag.String("profile-dir", "", "Directory to write profiles (optional)")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *modules < 1 {
		log.Fatal("--modules must be at least 1")
	}

	if *runs < 1 {
		log.Fatal("--runs must be at least 1")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	if *cpuProfile {
		if *profileDir == "" {
			log.Fatal("--cpu-profile requires --profile-dir")
		}

		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	member, files := buildPackage(*modules)
	log.Printf("generated package with %d modules", *modules)

	a := &analysis.Analyzer{Workers: *workers}
	req := analysis.Request{
		RegistryURL: "https://pkggate.dev",
		Member:      member,
		Files:       files,
	}

	logHeap("before_runs")
	writeHeapProfile(*profileDir, "heap_before_runs.prof")

	durations := make([]time.Duration, 0, *runs)

	for i := range *runs {
		start := time.Now()

		out, err := a.AnalyzePackage(context.Background(), req)
		if err != nil {
			log.Fatalf("run %d: %v", i+1, err)
		}

		elapsed := time.Since(start)
		durations = append(durations, elapsed)

		log.Printf("run %d/%d: %s (%d modules, tarball %d bytes)",
			i+1, *runs, elapsed.Round(time.Millisecond), len(out.ModuleGraph), out.Tarball.Size)
	}

	logHeap("after_runs")
	writeHeapProfile(*profileDir, "heap_after_runs.prof")

	printSummary(durations, *modules)
}

// buildPackage generates a chain of modules: each imports the next and adds
// one to its exported value. Every symbol carries a doc comment so the
// documentation stages have real work to do.
func buildPackage(n int) (*ids.Member, *ids.FileSet) {
	files := ids.NewFileSet()

	for i := range n {
		path := ids.PackagePath(fmt.Sprintf("/mod%d.ts", i))

		if err := files.Add(path, []byte(moduleSource(i, n))); err != nil {
			log.Fatalf("add module: %v", err)
		}
	}

	return &ids.Member{
		Scope:   "bench",
		Name:    "chain",
		Version: ids.MustVersion("1.0.0"),
		Exports: ids.ExportsFromPairs(".", "./mod0.ts"),
	}, files
}

func moduleSource(i, n int) string {
	if i == n-1 {
		return fmt.Sprintf("/** Level %d value. */\nexport const v%d: number = 0;\n", i, i)
	}

	return fmt.Sprintf(
		"import { v%d } from \"./mod%d.ts\";\n\n/** Level %d value. */\nexport const v%d: number = v%d + 1;\n",
		i+1, i+1, i, i, i+1,
	)
}

func logHeap(label string) {
	runtime.GC()
	runtime.GC()

	var m runtime.MemStats

	runtime.ReadMemStats(&m)
	log.Printf("  [heap] %-14s inuse=%6.1f MB  sys=%6.1f MB",
		label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6)
}

func writeHeapProfile(dir, name string) {
	if dir == "" {
		return
	}

	runtime.GC()
	runtime.GC()

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		log.Printf("warning: create heap profile %s: %v", path, err)

		return
	}
	defer f.Close()

	if perr := pprof.WriteHeapProfile(f); perr != nil {
		log.Printf("warning: write heap profile %s: %v", path, perr)
	}
}

func printSummary(durations []time.Duration, modules int) {
	var total, fastest, slowest time.Duration

	for i, d := range durations {
		total += d

		if i == 0 || d < fastest {
			fastest = d
		}

		if d > slowest {
			slowest = d
		}
	}

	mean := total / time.Duration(len(durations))

	fmt.Println()
	fmt.Println("=== Analysis Timing ===")
	fmt.Printf("%-10s %12s\n", "Metric", "Duration")
	fmt.Println("-----------+------------")
	fmt.Printf("%-10s %12s\n", "fastest", fastest.Round(time.Millisecond))
	fmt.Printf("%-10s %12s\n", "mean", mean.Round(time.Millisecond))
	fmt.Printf("%-10s %12s\n", "slowest", slowest.Round(time.Millisecond))
	fmt.Printf("\nthroughput: %.0f modules/sec (mean)\n", float64(modules)/mean.Seconds())
}
