package graph

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/esparse"
)

const defaultWorkers = 8

// Builder assembles a Graph from root specifiers. Loads and parses run on
// a bounded worker pool per breadth-first wave; resolution and bookkeeping
// stay sequential so discovery order is reproducible.
type Builder struct {
	Loader   Loader
	Resolver Resolver
	Parser   esparse.Parser
	Workers  int
}

// Build loads the full graph reachable from roots. Module-level failures
// are recorded on the nodes for Valid to surface; only infrastructure
// failures (loader I/O, cancellation) abort the build.
func (b *Builder) Build(ctx context.Context, roots []*url.URL) (*Graph, error) {
	resolver := b.Resolver
	if resolver == nil {
		resolver = DefaultResolver{}
	}

	workers := b.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	g := &Graph{modules: map[string]*Module{}}
	for _, root := range roots {
		g.roots = append(g.roots, root)
	}

	visited := map[string]bool{}

	var pending []*url.URL
	enqueue := func(u *url.URL) {
		key := u.String()
		if visited[key] {
			return
		}

		visited[key] = true
		g.order = append(g.order, key)
		pending = append(pending, u)
	}

	for _, root := range g.roots {
		enqueue(root)
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wave := pending
		pending = nil

		loaded, err := b.loadWave(ctx, wave, workers)
		if err != nil {
			return nil, err
		}

		for _, m := range loaded {
			g.modules[m.Specifier.String()] = m
			if m.Kind != KindESM || m.Err != nil {
				continue
			}

			b.link(m, resolver, enqueue)
		}
	}

	return g, nil
}

// loadWave loads one wave of specifiers concurrently, preserving wave
// order in the result.
func (b *Builder) loadWave(ctx context.Context, wave []*url.URL, workers int) ([]*Module, error) {
	loaded := make([]*Module, len(wave))

	if workers > len(wave) {
		workers = len(wave)
	}

	jobs := make(chan int)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		hardErr error
	)

	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			for i := range jobs {
				m, err := b.load(ctx, wave[i])
				if err != nil {
					mu.Lock()
					if hardErr == nil {
						hardErr = err
					}
					mu.Unlock()

					continue
				}

				loaded[i] = m
			}
		}()
	}

	for i := range wave {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if hardErr != nil {
		return nil, hardErr
	}

	return loaded, nil
}

// load fetches and parses a single module. Expected failures land on the
// module node; the error return is reserved for infrastructure problems.
func (b *Builder) load(ctx context.Context, specifier *url.URL) (*Module, error) {
	res, err := b.Loader.Load(ctx, specifier)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", specifier, err)
	}

	m := &Module{Specifier: specifier, Kind: KindESM}

	switch res.Kind {
	case LoadExternal:
		m.Kind = KindExternal
		return m, nil
	case LoadNotFound:
		m.Err = diag.Errorf(diag.KindGraphError, "module not found").At(specifier.String())
		return m, nil
	}

	media := res.MediaType
	if media == "" {
		media = ast.MediaTypeForPath(specifier.Path)
	}

	m.MediaType = media
	m.Source = res.Content

	switch {
	case media == ast.MediaJSON:
		m.Kind = KindJSON
	case !media.IsParseable():
		m.Err = diag.Errorf(
			diag.KindGraphError,
			"expected a JavaScript or TypeScript module, but found %s", media,
		).At(specifier.String())
	default:
		parsed, err := b.Parser.Parse(ctx, specifier.String(), res.Content, media)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			m.Err = diag.Errorf(diag.KindGraphError, "%v", err).At(specifier.String()).Wrap(err)

			return m, nil
		}

		m.AST = parsed
		m.Text = ast.NewSourceText(string(res.Content))
	}

	return m, nil
}

// link resolves a module's dependency references into edges and queues
// newly discovered specifiers.
func (b *Builder) link(m *Module, resolver Resolver, enqueue func(*url.URL)) {
	for _, ref := range m.AST.Dependencies() {
		dep := Dependency{
			Specifier: ref.Specifier,
			Kind:      ref.Kind,
			TypeOnly:  ref.TypeOnly,
			Span:      ref.Span,
		}

		resolved, err := resolver.Resolve(ref.Specifier, m.Specifier)
		if err != nil {
			line, col := m.Text.PositionAt(ref.Span.Start)
			dep.Err = diag.Errorf(diag.KindGraphError, "%v", err).
				AtPos(m.Specifier.String(), line, col).
				Wrap(err)
		} else {
			dep.Resolved = resolved
			enqueue(resolved)
		}

		m.Dependencies = append(m.Dependencies, dep)
	}

	if ref := typesReference(m); ref != "" {
		resolved, err := resolver.Resolve(ref, m.Specifier)
		dep := Dependency{Specifier: ref, Kind: ast.ImportTypesReference}
		if err != nil {
			dep.Err = diag.Errorf(diag.KindGraphError, "%v", err).
				At(m.Specifier.String()).
				Wrap(err)
		} else {
			dep.Resolved = resolved
			m.TypesDependency = resolved
			enqueue(resolved)
		}

		m.Dependencies = append(m.Dependencies, dep)
	}
}

// typesReferenceRE matches a triple-slash types reference directive in
// comment text that follows the leading slashes.
var typesReferenceRE = regexp.MustCompile(
	`^/\s*<reference\s+types\s*=\s*("([^"]+)"|'([^']+)')\s*/>\s*$`,
)

// typesReference returns the types directive target of a plain JavaScript
// module, or "". TypeScript modules carry their own types and are skipped.
func typesReference(m *Module) string {
	switch m.MediaType {
	case ast.MediaJavaScript, ast.MediaMjs, ast.MediaCjs, ast.MediaJsx:
	default:
		return ""
	}

	for _, c := range m.AST.Comments {
		if c.Block {
			continue
		}

		match := typesReferenceRE.FindStringSubmatch(c.Text)
		if match == nil {
			continue
		}

		if match[2] != "" {
			return match[2]
		}

		return match[3]
	}

	return ""
}
