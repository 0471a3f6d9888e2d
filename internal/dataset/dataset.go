package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"

	"vidbunch/internal/augment"
	"vidbunch/internal/logging"
	"vidbunch/internal/media"
	"vidbunch/internal/meta"
	"vidbunch/internal/metastore"
	"vidbunch/internal/sampler"
	"vidbunch/internal/vberr"
)

// Options are the construction parameters of a Dataset.
type Options struct {
	Cut         float64
	FrameSize   int
	Setting     sampler.Setting
	Keep        Keep
	NumSegments int
	SegmentSize int
	MetaPath    string
}

// Policy returns the sampling policy described by o.
func (o Options) Policy() sampler.Policy {
	return sampler.Policy{Cut: o.Cut, Setting: o.Setting, NumSegments: o.NumSegments, SegmentSize: o.SegmentSize}
}

// Sample is one dataset item.
type Sample struct {
	Video *Video
	Label *Label
}

// Dataset is an indexable collection of augmented clips.
type Dataset struct {
	opts      Options
	policy    sampler.Policy
	pipeline  augment.Pipeline
	table     meta.Table
	classes   []int
	lid2label map[int]string
	label2lid map[string]int
	source    media.Source
	logger    *slog.Logger
}

// Open reads the metadata table at opts.MetaPath and constructs a Dataset.
func Open(ctx context.Context, opts Options, source media.Source, logger *slog.Logger) (*Dataset, error) {
	if strings.TrimSpace(opts.MetaPath) == "" {
		return nil, vberr.Configf("dataset", "metadata path is required")
	}
	table, err := metastore.ReadTable(ctx, opts.MetaPath)
	if err != nil {
		return nil, err
	}
	return New(opts, table, source, logger)
}

// New validates opts, builds the class lookups over the whole table, then
// applies opts.Keep.
func New(opts Options, table meta.Table, source media.Source, logger *slog.Logger) (*Dataset, error) {
	policy := opts.Policy()
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	pipeline, err := augment.New(opts.Setting, opts.FrameSize)
	if err != nil {
		return nil, err
	}
	if err := opts.Keep.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, vberr.Configf("dataset", "frame source is required")
	}
	logger = logging.NewComponentLogger(logger, "dataset")

	d := &Dataset{
		opts:      opts,
		policy:    policy,
		pipeline:  pipeline,
		lid2label: make(map[int]string),
		label2lid: make(map[string]int),
		source:    source,
		logger:    logger,
	}
	for _, clip := range table {
		if _, ok := d.lid2label[clip.LID]; !ok {
			d.lid2label[clip.LID] = clip.Label
		}
		key := foldLabel(clip.Label)
		if prev, ok := d.label2lid[key]; ok && prev != clip.LID {
			logger.Warn("label maps to several class ids; keeping the first",
				slog.String("label", clip.Label),
				slog.Int("lid", prev),
				slog.Int("ignored_lid", clip.LID),
			)
			continue
		}
		d.label2lid[key] = clip.LID
	}

	d.table = opts.Keep.Apply(table)
	seen := make(map[int]bool)
	for _, clip := range d.table {
		if !seen[clip.LID] {
			seen[clip.LID] = true
			d.classes = append(d.classes, clip.LID)
		}
	}

	logger.Debug("dataset constructed",
		slog.Int("rows", len(table)),
		slog.Int("kept", len(d.table)),
		slog.Int("classes", len(d.classes)),
		slog.String("keep", opts.Keep.String()),
		slog.String("policy", policy.String()),
	)
	return d, nil
}

// Len returns the number of rows after subsetting.
func (d *Dataset) Len() int { return len(d.table) }

// Meta returns row i of the filtered table.
func (d *Dataset) Meta(i int) (meta.VideoMeta, error) {
	if i < 0 || i >= len(d.table) {
		return meta.VideoMeta{}, vberr.Configf("dataset", "index %d out of range [0, %d)", i, len(d.table))
	}
	return d.table[i], nil
}

// Table returns a copy of the filtered table.
func (d *Dataset) Table() meta.Table { return append(meta.Table(nil), d.table...) }

// Options returns the construction options.
func (d *Dataset) Options() Options { return d.opts }

// Policy returns the sampling policy.
func (d *Dataset) Policy() sampler.Policy { return d.policy }

// Pipeline returns the augmentation pipeline.
func (d *Dataset) Pipeline() augment.Pipeline { return d.pipeline }

// Item samples, decodes, and augments row i. In the train setting a nil rng
// is replaced by a freshly seeded one.
func (d *Dataset) Item(ctx context.Context, i int, rng *rand.Rand) (Sample, error) {
	clip, err := d.Meta(i)
	if err != nil {
		return Sample{}, err
	}
	if rng == nil && d.opts.Setting == sampler.SettingTrain {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	video, err := NewVideo(clip, d.policy, rng)
	if err != nil {
		return Sample{}, err
	}
	if err := video.Load(ctx, d.source); err != nil {
		return Sample{}, err
	}
	label := NewLabel(clip)
	if err := video.Augment(d.pipeline, rng); err != nil {
		return Sample{}, err
	}
	return Sample{Video: video, Label: label}, nil
}

// Batch returns n distinct rows drawn uniformly at random, ignoring class.
func (d *Dataset) Batch(ctx context.Context, n int, rng *rand.Rand) ([]Sample, error) {
	if n < 0 || n > len(d.table) {
		return nil, vberr.Configf("dataset", "batch of %d requested from %d rows", n, len(d.table))
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	order := rng.Perm(len(d.table))[:n]
	out := make([]Sample, 0, n)
	for _, i := range order {
		sample, err := d.Item(ctx, i, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, nil
}

// Classes returns the class ids present after subsetting, in first-appearance
// order.
func (d *Dataset) Classes() []int { return append([]int(nil), d.classes...) }

// NumClasses returns the number of classes in the unfiltered table.
func (d *Dataset) NumClasses() int { return len(d.lid2label) }

// LabelFor returns the canonical label of a class id.
func (d *Dataset) LabelFor(lid int) (string, bool) {
	label, ok := d.lid2label[lid]
	return label, ok
}

// LIDFor returns the class id of a label, ignoring case.
func (d *Dataset) LIDFor(label string) (int, bool) {
	lid, ok := d.label2lid[foldLabel(label)]
	return lid, ok
}

// ClassCounts returns the retained rows per class id.
func (d *Dataset) ClassCounts() map[int]int { return d.table.ClassCounts() }

// Shape returns the per-item tensor shape [T,3,S,S].
func (d *Dataset) Shape() []int {
	return []int{d.policy.Frames(), augment.Channels, d.opts.FrameSize, d.opts.FrameSize}
}

func (d *Dataset) String() string {
	s := d.Shape()
	return fmt.Sprintf("%d x (%d,%d,%d,%d)", d.Len(), s[0], s[1], s[2], s[3])
}

// foldLabel normalises a label for case-insensitive lookup. cases.Caser is
// stateful, so each call gets its own.
func foldLabel(label string) string {
	return cases.Fold().String(strings.TrimSpace(label))
}
