package models

import "strings"

// Field names one of the statistics read from the dashboard.
type Field string

const (
	FieldTranslatedPercent Field = "translated_percent"
	FieldApprovedPercent   Field = "approved_percent"
	FieldWordsToTranslate  Field = "words_to_translate"
)

// Fields lists every field in extraction order.
var Fields = []Field{
	FieldTranslatedPercent,
	FieldApprovedPercent,
	FieldWordsToTranslate,
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// NotFound is the text rendered in logs and alerts for a missing value.
const NotFound = "Not found"

// CompletePercent is the value both percentage fields must carry for the
// project to count as done.
const CompletePercent = "100%"

// FieldValue is the outcome of reading one field: either the trimmed text of
// the element, or missing.
type FieldValue struct {
	Text  string
	Found bool
}

// Found returns a present value holding the trimmed text.
func Found(text string) FieldValue {
	return FieldValue{Text: strings.TrimSpace(text), Found: true}
}

// Missing returns the absent value.
func Missing() FieldValue {
	return FieldValue{}
}

// String renders the value, substituting NotFound when absent.
func (v FieldValue) String() string {
	if !v.Found {
		return NotFound
	}
	return v.Text
}

// Is reports whether the value is present and equal to text.
func (v FieldValue) Is(text string) bool {
	return v.Found && v.Text == text
}

// FieldMap is the raw output of one extraction, keyed by field.
// A key absent from the map is read as Missing.
type FieldMap map[Field]FieldValue

// Get returns the value for f, or Missing if f was never stored.
func (m FieldMap) Get(f Field) FieldValue {
	if m == nil {
		return Missing()
	}
	return m[f]
}

// MissingFields returns the fields that have no value, in extraction order.
func (m FieldMap) MissingFields() []Field {
	var missing []Field
	for _, f := range Fields {
		if !m.Get(f).Found {
			missing = append(missing, f)
		}
	}
	return missing
}

// CheckResult is the decision-bearing record produced once per run.
type CheckResult struct {
	TranslatedPercent string `json:"translated_percent"`
	ApprovedPercent   string `json:"approved_percent"`
	WordsToTranslate  string `json:"words_to_translate"`

	// IsThereAJob is true whenever translation or approval is not complete.
	IsThereAJob bool `json:"is_there_a_job"`
}
