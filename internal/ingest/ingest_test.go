package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"FakeNewsDetector/internal/domain"
)

func writeCorpus(t *testing.T, dir, name string, rows int, prefix string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("title,text,subject,date\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%s title %d,\"%s body %d, with a comma\",politics,2017-01-0%d\n", prefix, i, prefix, i, i%9+1)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestLoadFilesScenario(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fakePath := writeCorpus(t, dir, "Fake.csv", 5, "fake")
	realPath := writeCorpus(t, dir, "True.csv", 5, "real")

	loader := NewLoader(Options{SampleSizePerClass: 5, TestSize: 0.4, Seed: 42}, nil)
	split, err := loader.LoadFiles(fakePath, realPath)
	if err != nil {
		t.Fatalf("LoadFiles returned error: %v", err)
	}

	if split.Train.Len() != 6 || split.Test.Len() != 4 {
		t.Fatalf("expected 6/4 rows, got %d/%d", split.Train.Len(), split.Test.Len())
	}
	if got := split.Train.ClassCounts(); got != [2]int{3, 3} {
		t.Fatalf("unexpected train class balance %v", got)
	}
	if got := split.Test.ClassCounts(); got != [2]int{2, 2} {
		t.Fatalf("unexpected test class balance %v", got)
	}

	for i, text := range split.Train.Texts {
		wantPrefix := "fake title"
		if split.Train.Labels[i] == domain.Real {
			wantPrefix = "real title"
		}
		if !strings.HasPrefix(text, wantPrefix) {
			t.Fatalf("row %q does not match label %d", text, split.Train.Labels[i])
		}
		if strings.Contains(text, "politics") {
			t.Fatalf("metadata leaked into content: %q", text)
		}
	}
}

func TestReadTruncatesToHead(t *testing.T) {
	t.Parallel()

	input := "title,text\nfirst,one\nsecond,two\nthird,three\n"
	loader := NewLoader(Options{SampleSizePerClass: 2}, nil)

	records, err := loader.Read(strings.NewReader(input), domain.Fake)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "first" || records[1].Body != "two" {
		t.Fatalf("expected head rows, got %+v", records)
	}
	if records[0].Content() != "first one" {
		t.Fatalf("unexpected content %q", records[0].Content())
	}
}

func TestReadShortCorpusTakesAll(t *testing.T) {
	t.Parallel()

	input := "text,title\nbody only,\n"
	loader := NewLoader(Options{SampleSizePerClass: 10}, nil)

	records, err := loader.Read(strings.NewReader(input), domain.Real)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Title != "" || records[0].Body != "body only" || records[0].Label != domain.Real {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestReadMissingColumn(t *testing.T) {
	t.Parallel()

	loader := NewLoader(Options{SampleSizePerClass: 10}, nil)
	_, err := loader.Read(strings.NewReader("headline,text\na,b\n"), domain.Fake)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadFilesMissingFile(t *testing.T) {
	t.Parallel()

	loader := NewLoader(Options{SampleSizePerClass: 10, TestSize: 0.2}, nil)
	_, err := loader.LoadFiles(filepath.Join(t.TempDir(), "nope.csv"), "also-missing.csv")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func labelled(fake, genuine int) domain.Dataset {
	var data domain.Dataset
	for i := 0; i < fake; i++ {
		data.Texts = append(data.Texts, fmt.Sprintf("fake %d", i))
		data.Labels = append(data.Labels, domain.Fake)
	}
	for i := 0; i < genuine; i++ {
		data.Texts = append(data.Texts, fmt.Sprintf("real %d", i))
		data.Labels = append(data.Labels, domain.Real)
	}
	return data
}

func TestStratifiedSplitKeepsProportions(t *testing.T) {
	t.Parallel()

	data := labelled(60, 40)
	split, err := StratifiedSplit(data, 0.25, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit returned error: %v", err)
	}

	if split.Test.Len() != 25 || split.Train.Len() != 75 {
		t.Fatalf("expected 75/25 rows, got %d/%d", split.Train.Len(), split.Test.Len())
	}
	if got := split.Test.ClassCounts(); got != [2]int{15, 10} {
		t.Fatalf("unexpected test class counts %v", got)
	}
	if got := split.Train.ClassCounts(); got != [2]int{45, 30} {
		t.Fatalf("unexpected train class counts %v", got)
	}

	seen := make(map[string]bool)
	for _, text := range append(append([]string(nil), split.Train.Texts...), split.Test.Texts...) {
		if seen[text] {
			t.Fatalf("row %q appears twice", text)
		}
		seen[text] = true
	}
	if len(seen) != data.Len() {
		t.Fatalf("expected every row exactly once, got %d", len(seen))
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	t.Parallel()

	data := labelled(13, 9)
	first, err := StratifiedSplit(data, 0.3, 42)
	if err != nil {
		t.Fatalf("first split: %v", err)
	}
	second, err := StratifiedSplit(data, 0.3, 42)
	if err != nil {
		t.Fatalf("second split: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different splits")
	}

	other, err := StratifiedSplit(data, 0.3, 43)
	if err != nil {
		t.Fatalf("other split: %v", err)
	}
	if other.Test.Len() != first.Test.Len() {
		t.Fatalf("test size must not depend on the seed")
	}
}

func TestStratifiedSplitTooFewRows(t *testing.T) {
	t.Parallel()

	if _, err := StratifiedSplit(labelled(1, 0), 0.5, 1); !errors.Is(err, ErrTooFewRows) {
		t.Fatalf("expected ErrTooFewRows, got %v", err)
	}
	if _, err := StratifiedSplit(labelled(3, 1), 0.5, 1); !errors.Is(err, ErrTooFewRows) {
		t.Fatalf("expected ErrTooFewRows for singleton class, got %v", err)
	}
}

func TestBuildShuffleIsSeeded(t *testing.T) {
	t.Parallel()

	fake := []domain.NewsRecord{{Title: "a", Label: domain.Fake}, {Title: "b", Label: domain.Fake}, {Title: "c", Label: domain.Fake}}
	genuine := []domain.NewsRecord{{Title: "x", Label: domain.Real}, {Title: "y", Label: domain.Real}, {Title: "z", Label: domain.Real}}

	opts := Options{TestSize: 1.0 / 3, Seed: 5, Shuffle: true}
	first, err := NewLoader(opts, nil).Build(fake, genuine)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := NewLoader(opts, nil).Build(fake, genuine)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("shuffled build is not reproducible")
	}
	if first.Test.Len() != 2 || first.Test.ClassCounts() != [2]int{1, 1} {
		t.Fatalf("unexpected test partition %+v", first.Test)
	}
}
