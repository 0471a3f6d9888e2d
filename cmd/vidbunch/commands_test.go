package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vidbunch/internal/stats"
	"vidbunch/internal/testsupport"
	"vidbunch/internal/vberr"
)

func inspectJSON(t *testing.T, env *cliTestEnv, extra ...string) inspectReport {
	t.Helper()
	out, _, err := runCLI(t, append([]string{"inspect", "--json"}, extra...), env.configPath)
	if err != nil {
		t.Fatalf("inspect %v: %v", extra, err)
	}
	var report inspectReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode inspect output %q: %v", out, err)
	}
	return report
}

func TestInspectSummarizesSplit(t *testing.T) {
	env := setupCLITestEnv(t)

	report := inspectJSON(t, env)
	if report.Rows != 6 || report.NumClasses != 3 || len(report.Classes) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !reflect.DeepEqual(report.Shape, []int{4, 3, 32, 32}) {
		t.Fatalf("shape = %v", report.Shape)
	}
	if report.Setting != "train" || report.Keep != "all" {
		t.Fatalf("setting/keep = %s/%s", report.Setting, report.Keep)
	}
	for _, c := range report.Classes {
		if c.Clips != 2 {
			t.Fatalf("class %d has %d clips, want 2", c.LID, c.Clips)
		}
	}

	valid := inspectJSON(t, env, "--split", "valid")
	if valid.Rows != 3 || valid.Setting != "eval" {
		t.Fatalf("valid split: %+v", valid)
	}

	out, _, err := runCLI(t, []string{"inspect"}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "6 x (4,3,32,32)")
	requireContains(t, out, "Class 2")
}

func TestInspectKeepOverride(t *testing.T) {
	env := setupCLITestEnv(t)

	head := inspectJSON(t, env, "--keep", "1")
	if head.Rows != 1 || len(head.Classes) != 1 || head.NumClasses != 3 {
		t.Fatalf("keep=1: %+v", head)
	}

	strat := inspectJSON(t, env, "--keep", "0.5")
	if strat.Rows != 3 || len(strat.Classes) != 3 {
		t.Fatalf("keep=0.5: %+v", strat)
	}

	whole := inspectJSON(t, env, "--keep", "1.0")
	if whole.Rows != 6 {
		t.Fatalf("keep=1.0: %+v", whole)
	}

	if _, _, err := runCLI(t, []string{"inspect", "--keep", "0"}, env.configPath); !errors.Is(err, vberr.ErrConfiguration) {
		t.Fatalf("keep=0: expected configuration error, got %v", err)
	}
}

func TestSampleDrawsStayInRange(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sample", "2", "--json", "--draws", "3", "--seed", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	var draws []sampleDraw
	if err := json.Unmarshal([]byte(out), &draws); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(draws) != 3 {
		t.Fatalf("got %d draws", len(draws))
	}
	for _, d := range draws {
		if len(d.Indices) != 4 {
			t.Fatalf("indices = %v", d.Indices)
		}
		for _, idx := range d.Indices {
			if idx < 0 || idx >= 8 {
				t.Fatalf("index %d outside [0,8)", idx)
			}
		}
		if w := d.CropBox[2] - d.CropBox[0]; w != 32 {
			t.Fatalf("crop width %d", w)
		}
	}

	again, _, err := runCLI(t, []string{"sample", "2", "--json", "--draws", "3", "--seed", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("sample again: %v", err)
	}
	if again != out {
		t.Fatalf("same seed produced different draws:\n%s\n%s", out, again)
	}
}

func TestSampleEvalIsDeterministic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sample", "0", "--split", "valid", "--json", "--draws", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	var draws []sampleDraw
	if err := json.Unmarshal([]byte(out), &draws); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(draws[0], draws[1]) {
		t.Fatalf("eval draws differ: %+v vs %+v", draws[0], draws[1])
	}
	if draws[0].FlipH || draws[0].FlipV || draws[0].Brightness != 0 || draws[0].HueSaturation != 0 {
		t.Fatalf("eval draw is augmented: %+v", draws[0])
	}
	// 40x24 frames centre-crop horizontally and centre-pad vertically.
	if draws[0].CropBox != [4]int{4, -4, 36, 28} {
		t.Fatalf("crop box = %v", draws[0].CropBox)
	}

	if _, _, err := runCLI(t, []string{"sample", "99"}, env.configPath); err == nil {
		t.Fatal("expected out of range row to fail")
	}
}

func TestBatchCommandReportsShapes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"batch"}, env.configPath)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	requireContains(t, out, "3 batches per epoch")
	requireContains(t, out, "[2 4 3 32 32]")
	requireContains(t, out, "Loaded 3 batches")

	out, _, err = runCLI(t, []string{"batch", "--limit", "1", "--epochs", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("batch --limit: %v", err)
	}
	requireContains(t, out, "Loaded 1 batches")
}

func TestBatchMissingFramesIsMediaReadError(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(filepath.Join(env.cfg.Paths.RootPath, env.train[0].Path)); err != nil {
		t.Fatalf("remove frames: %v", err)
	}
	_, _, err := runCLI(t, []string{"batch"}, env.configPath)
	if !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Root path")
	requireContains(t, out, "Train metadata")

	if err := os.Remove(env.cfg.Paths.MetaValid); err != nil {
		t.Fatalf("remove valid meta: %v", err)
	}
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if !errors.Is(err, vberr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, out, "FAIL")
}

func TestIndexBuildStatusAndRead(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"index", "build"}, env.configPath)
	if err != nil {
		t.Fatalf("index build: %v", err)
	}
	requireContains(t, out, "Indexed 6 clips in 3 classes")

	indexPath := env.cfg.IndexPath("train")
	if _, err := os.Stat(indexPath); err != nil {
		t.Fatalf("expected index at %s: %v", indexPath, err)
	}

	out, _, err = runCLI(t, []string{"index", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("index status: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.MetaTrain)
	requireContains(t, out, "Class 1")

	report := inspectJSON(t, env, "--meta", indexPath)
	if report.Rows != 6 || report.NumClasses != 3 {
		t.Fatalf("inspect from index: %+v", report)
	}

	out, _, err = runCLI(t, []string{"index", "status", "--split", "valid"}, env.configPath)
	if err != nil {
		t.Fatalf("index status valid: %v", err)
	}
	requireContains(t, out, "is empty")
}

func TestStatsCommandWritesRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "stats.json")

	out, _, err := runCLI(t, []string{"stats", "--frames-per-clip", "2", "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "Wrote statistics over")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read stats: %v", err)
	}
	var records []stats.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	// six clips, two 40x24 frames each
	if records[0].Count != 6*2*40*24 {
		t.Fatalf("count = %v", records[0].Count)
	}
	if records[0].MeanB < 0.49 || records[0].MeanB > 0.51 {
		t.Fatalf("blue mean = %v, frames are uniformly 128", records[0].MeanB)
	}
}

func TestAugmentMetaCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	probe := testsupport.WriteStub(t, filepath.Join(env.baseDir, "probe-bin"), "ffprobe", `for last; do :; done
echo '{"streams":[{"codec_type":"video","width":427,"height":240,"avg_frame_rate":"12/1","nb_read_frames":"48"}]}'`)
	env.cfg.Media.FFprobeBinary = probe
	writeTestConfig(t, env.configPath, env.cfg)

	labels := filepath.Join(env.baseDir, "labels.json")
	raw := filepath.Join(env.baseDir, "raw.json")
	outPath := filepath.Join(env.baseDir, "augmented.json")
	if err := os.WriteFile(labels, []byte(`{"Holding something": "3", "Pushing something": "5"}`), 0o644); err != nil {
		t.Fatalf("write labels: %v", err)
	}
	if err := os.WriteFile(raw, []byte(`[{"id": 7, "template": "Holding [something]"}, {"id": 8, "template": "Pushing [something]"}]`), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	out, _, err := runCLI(t, []string{"augment-meta", raw, outPath, "--labels", labels, "--video-dir", "/videos"}, env.configPath)
	if err != nil {
		t.Fatalf("augment-meta: %v", err)
	}
	requireContains(t, out, "Wrote 2 clips across 2 classes")
	written := mustRead(t, outPath)
	requireContains(t, written, `"path": "/videos/7.webm"`)
	requireContains(t, written, `"length": 48`)

	if _, _, err := runCLI(t, []string{"augment-meta", raw, outPath}, env.configPath); err == nil {
		t.Fatal("expected missing --labels to fail")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestLogsCommandShowsRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"index", "build"}, env.configPath); err != nil {
		t.Fatalf("index build: %v", err)
	}
	if _, _, err := runCLI(t, []string{"inspect"}, env.configPath); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "runs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs runs: %v", err)
	}
	requireContains(t, out, "Duration")

	out, _, err = runCLI(t, []string{"logs", "--component", "index", "-n", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "metadata indexed")
	requireContains(t, out, "rows=6")
}
