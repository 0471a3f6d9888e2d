package prepro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vidbunch/internal/fileutil"
	"vidbunch/internal/logging"
	"vidbunch/internal/media/ffprobe"
	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

// DefaultExtension is the container of the source clips.
const DefaultExtension = ".webm"

// Row is one entry of a raw clip list.
type Row struct {
	ID       string
	Template string
}

// Options configures Augment.
type Options struct {
	VideoDir      string
	Extension     string
	FFprobeBinary string
	Labels        Labels
	Workers       int
	Progress      func(done, total int)
	Logger        *slog.Logger
}

// ReadRows loads a raw clip list: a JSON records array whose entries carry
// "id" and "template" (or "label").
func ReadRows(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "prepro", "read rows", path, err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "prepro", "read rows", path, err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		id, ok := rec["id"]
		if !ok {
			return nil, vberr.Configf("prepro", "%s: row %d: missing id", path, i)
		}
		template, ok := rec["template"].(string)
		if !ok {
			template, ok = rec["label"].(string)
		}
		if !ok {
			return nil, vberr.Configf("prepro", "%s: row %d: missing template", path, i)
		}
		rows = append(rows, Row{ID: fmt.Sprint(id), Template: template})
	}
	return rows, nil
}

// Augment probes every clip and returns complete metadata in row order.
func Augment(ctx context.Context, rows []Row, opts Options) (meta.Table, error) {
	if opts.Labels == nil {
		return nil, vberr.Configf("prepro", "labels are required")
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	if opts.FFprobeBinary == "" {
		opts.FFprobeBinary = "ffprobe"
	}
	workers := max(1, opts.Workers)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "prepro"))
	started := time.Now()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	out := make(meta.Table, len(rows))
	next := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				clip, err := augmentRow(ctx, rows[i], opts)
				if err != nil {
					cancel(err)
					return
				}
				out[i] = clip

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				if opts.Progress != nil {
					opts.Progress(n, len(rows))
				}
			}
		}()
	}

feed:
	for i := range rows {
		select {
		case next <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	logger.Info("metadata augmented",
		slog.Int("rows", len(out)),
		slog.Int("classes", len(out.ClassCounts())),
		slog.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

func augmentRow(ctx context.Context, row Row, opts Options) (meta.VideoMeta, error) {
	lid, ok := opts.Labels.Lookup(row.Template)
	if !ok {
		return meta.VideoMeta{}, vberr.Configf("prepro", "clip %s: template %q has no class id", row.ID, row.Template)
	}
	path := filepath.Join(opts.VideoDir, row.ID+opts.Extension)
	probe, err := ffprobe.CountFrames(ctx, opts.FFprobeBinary, path)
	if err != nil {
		return meta.VideoMeta{}, vberr.Wrap(vberr.ErrMediaRead, "prepro", "probe", fmt.Sprintf("clip %s", row.ID), err)
	}
	stream, ok := probe.VideoStream()
	if !ok {
		return meta.VideoMeta{}, vberr.Wrap(vberr.ErrMediaRead, "prepro", "probe", fmt.Sprintf("clip %s: no video stream", row.ID), nil)
	}
	length := stream.FrameCount()
	if length <= 0 {
		return meta.VideoMeta{}, vberr.Wrap(vberr.ErrMediaRead, "prepro", "probe", fmt.Sprintf("clip %s: frame count unavailable", row.ID), nil)
	}
	return meta.VideoMeta{
		ID:        row.ID,
		Label:     strings.TrimSpace(row.Template),
		LID:       lid,
		Path:      path,
		Length:    length,
		Height:    stream.Height,
		Width:     stream.Width,
		Framerate: stream.FrameRateNumerator(),
	}, nil
}

// WriteTable atomically replaces path with table as JSON records.
func WriteTable(ctx context.Context, path string, table meta.Table) error {
	return fileutil.WriteAtomic(ctx, path, func(w io.Writer) error {
		return meta.WriteJSON(w, table)
	})
}

// Run reads the raw list at inPath, augments it, and writes outPath.
func Run(ctx context.Context, inPath, outPath string, opts Options) (meta.Table, error) {
	rows, err := ReadRows(inPath)
	if err != nil {
		return nil, err
	}
	table, err := Augment(ctx, rows, opts)
	if err != nil {
		return nil, err
	}
	if err := WriteTable(ctx, outPath, table); err != nil {
		return nil, err
	}
	return table, nil
}
