// Package batch parses many inputs with one parser concurrently and
// reports progress as events.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"attrparse/internal/forest"
	"attrparse/internal/grammar"
	"attrparse/internal/observ"
	"attrparse/internal/parser"
	"attrparse/internal/syntax"
	"attrparse/internal/trace"
)

// Options configures Run.
type Options struct {
	Start grammar.SymbolName
	// Jobs bounds concurrent parses. Zero means GOMAXPROCS.
	Jobs  int
	Sink  ProgressSink
	Timer *observ.Timer
	// Trees converts every result to syntax trees and counts them.
	Trees     bool
	TreeLimit int
	// Encode stores the msgpack encoding of the result forest.
	Encode bool
}

const defaultTreeLimit = 1000

// Run parses every item. Reports come back in item order. Parse failures
// and conversion errors are recorded per item; Run itself fails only when
// ctx is cancelled.
func Run(ctx context.Context, p *parser.Parser[rune], items []Item, opts Options) ([]Report, error) {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.TreeLimit <= 0 {
		opts.TreeLimit = defaultTreeLimit
	}
	if opts.Start == "" {
		return nil, fmt.Errorf("batch: no start symbol")
	}

	span, ctx := trace.Start(ctx, trace.ScopePhase, "batch")
	defer span.End("")
	span.WithExtra("items", fmt.Sprint(len(items)))

	emit := func(ev Event) {
		if opts.Sink != nil {
			opts.Sink.OnEvent(ev)
		}
	}
	for _, it := range items {
		emit(Event{Item: it.Name, Stage: StageParse, Status: StatusQueued})
	}

	reports := make([]Report, len(items))
	// each goroutine writes its own index
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, min(opts.Jobs, len(items))))
	for i, it := range items {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			reports[i] = one(egctx, p, it, opts, emit)
			return nil
		})
	}
	err := eg.Wait()
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emit(Event{Stage: StageParse, Status: status, Err: err})
	return reports, err
}

func one(ctx context.Context, p *parser.Parser[rune], it Item, opts Options, emit func(Event)) Report {
	began := time.Now()
	rep := Report{Name: it.Name}
	fail := func(stage Stage, err error) Report {
		rep.Err = err
		rep.Elapsed = time.Since(began)
		emit(Event{Item: it.Name, Stage: stage, Status: StatusError, Err: err, Elapsed: rep.Elapsed})
		return rep
	}

	emit(Event{Item: it.Name, Stage: StageParse, Status: StatusWorking})
	res, err := parser.ParseString(ctx, p, it.Text, opts.Start)
	if err != nil {
		return fail(StageParse, err)
	}
	rep.Matched = res.Matched
	rep.Complete = res.Matched && res.Length == len([]rune(it.Text))
	rep.Position = res.Position
	rep.Length = res.Length
	rep.Outs = res.Outs()
	roots := res.Roots()

	if opts.Trees && res.Matched {
		emit(Event{Item: it.Name, Stage: StageTree, Status: StatusWorking})
		done := time.Now()
		for _, root := range roots {
			tree, err := syntax.BuildContext(ctx, root, p.Grammar())
			if err != nil {
				return fail(StageTree, err)
			}
			rep.Ambiguous = rep.Ambiguous || tree.IsAmbiguous()
			rep.Trees = min(rep.Trees+tree.Count(opts.TreeLimit), opts.TreeLimit)
		}
		opts.Timer.Add("tree", time.Since(done))
	}

	if opts.Encode && res.Matched {
		emit(Event{Item: it.Name, Stage: StageEncode, Status: StatusWorking})
		done := time.Now()
		var buf bytes.Buffer
		if err := forest.Encode(&buf, p.Grammar().Language(), roots...); err != nil {
			return fail(StageEncode, err)
		}
		rep.Encoded = buf.Bytes()
		opts.Timer.Add("encode", time.Since(done))
	}

	rep.Elapsed = time.Since(began)
	emit(Event{Item: it.Name, Stage: StageParse, Status: StatusDone, Elapsed: rep.Elapsed})
	return rep
}

// ReadItems reads one item per non-blank line of r. Items are named
// source:line.
func ReadItems(r io.Reader, source string) ([]Item, error) {
	var items []Item
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		items = append(items, Item{Name: fmt.Sprintf("%s:%d", source, line), Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return items, nil
}
