package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"

	"FakeNewsDetector/internal/domain"
)

const (
	titleColumn = "title"
	textColumn  = "text"
)

var (
	// ErrMissingColumn is returned when a corpus header lacks title or text.
	ErrMissingColumn = errors.New("missing column")
	// ErrTooFewRows is returned when a split would leave a partition or a class empty.
	ErrTooFewRows = errors.New("not enough rows to split")
)

// Options controls truncation, shuffling and the stratified split.
type Options struct {
	SampleSizePerClass int
	TestSize           float64
	Seed               int64
	Shuffle            bool
}

// Loader reads the fake and real corpora and produces the train/test split.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// NewLoader creates a loader; a nil logger discards warnings.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadFiles reads both CSV files and splits their union.
func (l *Loader) LoadFiles(fakePath, realPath string) (domain.Split, error) {
	fake, err := l.readFile(fakePath, domain.Fake)
	if err != nil {
		return domain.Split{}, err
	}
	genuine, err := l.readFile(realPath, domain.Real)
	if err != nil {
		return domain.Split{}, err
	}
	return l.Build(fake, genuine)
}

func (l *Loader) readFile(path string, label domain.Label) ([]domain.NewsRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	records, err := l.Read(f, label)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return records, nil
}

// Read parses a CSV corpus by header name, keeping at most SampleSizePerClass head rows.
func (l *Loader) Read(r io.Reader, label domain.Label) ([]domain.NewsRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	titleIdx, textIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case titleColumn:
			titleIdx = i
		case textColumn:
			textIdx = i
		}
	}
	if titleIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, titleColumn)
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, textColumn)
	}

	limit := l.opts.SampleSizePerClass
	records := make([]domain.NewsRecord, 0, max(limit, 0))
	for limit <= 0 || len(records) < limit {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, domain.NewsRecord{
			Title: field(row, titleIdx),
			Body:  field(row, textIdx),
			Label: label,
		})
	}

	if limit > 0 && len(records) < limit {
		l.logger.Warn("corpus shorter than requested sample size, using all rows",
			"label", int(label), "requested", limit, "available", len(records))
	}
	return records, nil
}

// Build concatenates fake then real records, optionally shuffles them and splits.
func (l *Loader) Build(fake, genuine []domain.NewsRecord) (domain.Split, error) {
	all := make([]domain.NewsRecord, 0, len(fake)+len(genuine))
	all = append(all, fake...)
	all = append(all, genuine...)

	if l.opts.Shuffle {
		rng := rand.New(rand.NewSource(l.opts.Seed))
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	}

	data := domain.Dataset{
		Texts:  make([]string, len(all)),
		Labels: make([]domain.Label, len(all)),
	}
	for i, rec := range all {
		data.Texts[i] = rec.Content()
		data.Labels[i] = rec.Label
	}

	split, err := StratifiedSplit(data, l.opts.TestSize, l.opts.Seed)
	if err != nil {
		return domain.Split{}, err
	}

	l.logger.Info("dataset split",
		"rows", data.Len(), "train", split.Train.Len(), "test", split.Test.Len())
	return split, nil
}

// StratifiedSplit partitions data so each class keeps its proportion in both partitions.
// The test partition holds ceil(testSize*n) rows; the same seed always yields the same split.
func StratifiedSplit(data domain.Dataset, testSize float64, seed int64) (domain.Split, error) {
	n := data.Len()
	if len(data.Labels) != n {
		return domain.Split{}, fmt.Errorf("dataset has %d texts but %d labels", n, len(data.Labels))
	}
	if testSize <= 0 || testSize >= 1 {
		return domain.Split{}, fmt.Errorf("test size must be in (0,1), got %v", testSize)
	}

	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	if nTest < 1 || n-nTest < 1 {
		return domain.Split{}, fmt.Errorf("%w: %d rows with test size %v", ErrTooFewRows, n, testSize)
	}

	byClass := make([][]int, domain.NumLabels)
	for i, label := range data.Labels {
		if label < 0 || int(label) >= domain.NumLabels {
			return domain.Split{}, fmt.Errorf("row %d has unknown label %d", i, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	testCounts := allocate(byClass, nTest, n)
	rng := rand.New(rand.NewSource(seed))

	var trainIdx, testIdx []int
	for c, members := range byClass {
		if len(members) == 0 {
			continue
		}
		if len(members) < 2 {
			return domain.Split{}, fmt.Errorf("%w: class %d has a single row", ErrTooFewRows, c)
		}
		shuffled := append([]int(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		testIdx = append(testIdx, shuffled[:testCounts[c]]...)
		trainIdx = append(trainIdx, shuffled[testCounts[c]:]...)
	}

	rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	return domain.Split{
		Train: subset(data, trainIdx),
		Test:  subset(data, testIdx),
	}, nil
}

// allocate distributes nTest rows across classes by largest remainder, keeping at
// least one row of every non-empty class on each side of the split when possible.
func allocate(byClass [][]int, nTest, n int) []int {
	counts := make([]int, len(byClass))
	remainders := make([]float64, len(byClass))
	assigned := 0
	for c, members := range byClass {
		exact := float64(nTest) * float64(len(members)) / float64(n)
		counts[c] = int(math.Floor(exact))
		remainders[c] = exact - float64(counts[c])
		assigned += counts[c]
	}

	for assigned < nTest {
		best := -1
		for c := range byClass {
			if counts[c] >= len(byClass[c])-1 {
				continue
			}
			if best < 0 || remainders[c] > remainders[best] {
				best = c
			}
		}
		if best < 0 {
			break
		}
		counts[best]++
		remainders[best] = -1
		assigned++
	}

	for c, members := range byClass {
		if len(members) >= 2 && counts[c] >= len(members) {
			counts[c] = len(members) - 1
		}
	}
	return counts
}

func subset(data domain.Dataset, idx []int) domain.Dataset {
	out := domain.Dataset{
		Texts:  make([]string, len(idx)),
		Labels: make([]domain.Label, len(idx)),
	}
	for i, j := range idx {
		out.Texts[i] = data.Texts[j]
		out.Labels[i] = data.Labels[j]
	}
	return out
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
