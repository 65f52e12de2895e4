package read

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/endorses/lcdissect/internal/pkg/constants"
	"github.com/endorses/lcdissect/internal/pkg/dissect"
	"github.com/endorses/lcdissect/internal/pkg/export"
	"github.com/endorses/lcdissect/internal/pkg/logger"
	"github.com/endorses/lcdissect/internal/pkg/metrics"
	"github.com/endorses/lcdissect/internal/pkg/output"
	"github.com/endorses/lcdissect/internal/pkg/pcapfile"
	"github.com/endorses/lcdissect/internal/pkg/proto"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sync/errgroup"
)

// Options configures one read run.
type Options struct {
	File         string
	WriteFile    string
	MetricsFile  string
	Fields       []string
	Format       output.Format
	Where        *export.Condition
	Workers      int
	MaxFrameSize uint64
	MaxTreeItems int
	Count        int
	ShowHidden   bool
	Color        bool
	Pretty       bool
}

// Stats summarizes a run.
type Stats struct {
	Frames   int
	Printed  int
	Filtered int
	Skipped  int
	Failed   int
	Duration time.Duration
}

type job struct {
	frame dissect.Frame
	info  gopacket.CaptureInfo
	skip  bool
}

type result struct {
	job
	tree *proto.Tree
	took time.Duration
	err  error
}

// run reads opts.File, dissects frames on opts.Workers goroutines and
// prints them to w in capture order.
func run(ctx context.Context, opts Options, w io.Writer) (st Stats, err error) {
	start := time.Now()
	defer func() { st.Duration = time.Since(start) }()

	r, err := pcapfile.Open(opts.File)
	if err != nil {
		return st, err
	}
	defer r.Close()
	logger.Debug("Opened capture file", "file", opts.File, "format", r.Format(), "link_type", r.LinkType())

	prime := append([]string(nil), opts.Fields...)
	if opts.Where != nil {
		prime = append(prime, opts.Where.Abbrev)
	}
	eng, err := dissect.New(proto.NewRegistry(), dissect.Config{
		MaxTreeItems: opts.MaxTreeItems,
		Visible:      len(opts.Fields) == 0,
		Prime:        prime,
	})
	if err != nil {
		return st, err
	}

	var pw *pcapfile.Writer
	if opts.WriteFile != "" {
		if pw, err = pcapfile.Create(opts.WriteFile); err != nil {
			return st, err
		}
		defer pw.Close()
	}

	styles := export.PlainStyles()
	if opts.Color {
		styles = export.SolarizedStyles()
	}
	printer := export.NewPrinter(w, export.Options{
		Format:     opts.Format,
		Fields:     opts.Fields,
		ShowHidden: opts.ShowHidden,
		Styles:     styles,
		Pretty:     opts.Pretty,
	})

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, constants.FrameChannelBuffer)
	results := make(chan result, constants.FrameChannelBuffer)

	g.Go(func() error {
		defer close(jobs)
		return produce(gctx, r, opts, jobs)
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				res := result{job: j}
				if !j.skip {
					began := time.Now()
					res.tree, res.err = eng.Dissect(j.frame)
					res.took = time.Since(began)
				}
				select {
				case results <- res:
				case <-gctx.Done():
					if res.tree != nil {
						res.tree.Destroy()
					}
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})

	m := metrics.New()
	g.Go(func() error {
		c := consumer{opts: opts, printer: printer, writer: pw, metrics: m, linkType: r.LinkType(), stats: &st}
		return c.consume(gctx, results)
	})

	err = g.Wait()
	if ferr := printer.Flush(); err == nil {
		err = ferr
	}
	if pw != nil {
		if cerr := pw.Close(); err == nil {
			err = cerr
		}
	}
	if opts.MetricsFile != "" {
		if merr := m.WriteFile(opts.MetricsFile); err == nil {
			err = merr
		}
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("Dissection interrupted")
		err = nil
	}
	return st, err
}

// produce reads records and numbers them from 1. Oversized records are
// forwarded as skipped so they keep their number.
func produce(ctx context.Context, r *pcapfile.Reader, opts Options, jobs chan<- job) error {
	linkType := r.LinkType()
	for n := 1; opts.Count == 0 || n <= opts.Count; n++ {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		j := job{
			frame: dissect.Frame{
				Number:     n,
				Timestamp:  rec.Info.Timestamp,
				Data:       rec.Data,
				WireLength: rec.Info.Length,
				LinkType:   linkType,
			},
			info: rec.Info,
		}
		if uint64(len(rec.Data)) > opts.MaxFrameSize && opts.MaxFrameSize > 0 {
			logger.Warn("Skipping oversized frame", "frame", n, "size", len(rec.Data), "max", opts.MaxFrameSize)
			j.skip = true
			j.frame.Data = nil
		}

		select {
		case jobs <- j:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

type consumer struct {
	opts     Options
	printer  *export.Printer
	writer   *pcapfile.Writer
	metrics  *metrics.Collector
	linkType layers.LinkType
	stats    *Stats
}

// consume restores capture order: results arrive in any order from the
// workers and are handled strictly by frame number.
func (c *consumer) consume(ctx context.Context, results <-chan result) error {
	pending := make(map[int]result)
	next := 1
	defer func() {
		for _, res := range pending {
			if res.tree != nil {
				res.tree.Destroy()
			}
		}
	}()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				return nil
			}
			pending[res.frame.Number] = res
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := c.handle(res); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *consumer) handle(res result) error {
	c.stats.Frames++
	switch {
	case res.skip:
		c.stats.Skipped++
		c.metrics.Frame(metrics.OutcomeSkipped)
		return nil
	case res.err != nil:
		c.stats.Failed++
		c.metrics.Frame(metrics.OutcomeFailed)
		logger.Warn("Frame dissection failed", "frame", res.frame.Number, "error", res.err)
		return nil
	}
	defer res.tree.Destroy()
	c.metrics.Dissected(protocols(res.tree), len(res.frame.Data), res.took)

	if c.opts.Where != nil {
		ok, err := c.opts.Where.Match(res.tree)
		if err != nil {
			return fmt.Errorf("frame %d: %w", res.frame.Number, err)
		}
		if !ok {
			c.stats.Filtered++
			c.metrics.Frame(metrics.OutcomeFiltered)
			return nil
		}
	}

	if err := c.printer.Print(res.frame.Number, res.tree); err != nil {
		return err
	}
	c.stats.Printed++
	c.metrics.Frame(metrics.OutcomePrinted)

	if c.writer != nil {
		if err := c.writer.Write(c.linkType, res.info, res.frame.Data); err != nil {
			return err
		}
	}
	return nil
}

// protocols lists the abbreviations of the tree's top-level protocols.
func protocols(tree *proto.Tree) []string {
	var out []string
	for _, n := range tree.Root().Children() {
		if hf := n.Info().HField; hf.IsProtocol() {
			out = append(out, hf.Abbrev)
		}
	}
	return out
}
