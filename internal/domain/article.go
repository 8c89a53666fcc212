package domain

// Label is the binary class assigned to a news article.
type Label int

const (
	Fake Label = 0
	Real Label = 1
)

// NumLabels is the number of classes every model predicts over.
const NumLabels = 2

// NewsRecord is a single row read from one of the raw corpora.
type NewsRecord struct {
	Title string
	Body  string
	Label Label
}

// Content joins title and body the same way for training and inference.
func (r NewsRecord) Content() string {
	return r.Title + " " + r.Body
}

// Dataset is an ordered sequence of contents with aligned labels.
type Dataset struct {
	Texts  []string `json:"texts"`
	Labels []Label  `json:"labels"`
}

// Len reports the number of rows.
func (d Dataset) Len() int {
	return len(d.Texts)
}

// ClassCounts returns the number of rows per label.
func (d Dataset) ClassCounts() [NumLabels]int {
	var counts [NumLabels]int
	for _, l := range d.Labels {
		if l >= 0 && int(l) < NumLabels {
			counts[l]++
		}
	}
	return counts
}

// Split holds the train and test partitions produced by ingestion.
type Split struct {
	Train Dataset
	Test  Dataset
}
