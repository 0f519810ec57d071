package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/transwatch/models"
)

func fieldMap(translated, approved, words models.FieldValue) models.FieldMap {
	return models.FieldMap{
		models.FieldTranslatedPercent: translated,
		models.FieldApprovedPercent:   approved,
		models.FieldWordsToTranslate:  words,
	}
}

func TestEvaluate_CompletionRule(t *testing.T) {
	full := models.Found("100%")
	missing := models.Missing()

	tests := []struct {
		name       string
		translated models.FieldValue
		approved   models.FieldValue
		wantJob    bool
	}{
		{"both complete", full, full, false},
		{"translated incomplete", models.Found("99%"), full, true},
		{"approved incomplete", full, models.Found("87%"), true},
		{"both incomplete", models.Found("87%"), models.Found("90%"), true},
		{"translated missing", missing, full, true},
		{"approved missing", full, missing, true},
		{"both missing", missing, missing, true},
		{"no percent sign", models.Found("100"), full, true},
		{"found but empty", models.Found(""), full, true},
		{"sentinel text found on page", models.Found(models.NotFound), full, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(fieldMap(tt.translated, tt.approved, models.Found("0")))
			assert.Equal(t, tt.wantJob, got.IsThereAJob)
		})
	}
}

func TestEvaluate_WordsDoNotAffectDecision(t *testing.T) {
	full := models.Found("100%")

	assert.False(t, Evaluate(fieldMap(full, full, models.Missing())).IsThereAJob)
	assert.False(t, Evaluate(fieldMap(full, full, models.Found("1500"))).IsThereAJob)
}

func TestEvaluate_ScenarioComplete(t *testing.T) {
	got := Evaluate(fieldMap(models.Found("100%"), models.Found("100%"), models.Found("0")))

	assert.Equal(t, models.CheckResult{
		TranslatedPercent: "100%",
		ApprovedPercent:   "100%",
		WordsToTranslate:  "0",
		IsThereAJob:       false,
	}, got)
}

func TestEvaluate_ScenarioMissingFields(t *testing.T) {
	got := Evaluate(fieldMap(models.Missing(), models.Found("100%"), models.Missing()))

	assert.True(t, got.IsThereAJob)
	assert.Equal(t, models.NotFound, got.TranslatedPercent)
	assert.Equal(t, "100%", got.ApprovedPercent)
	assert.Equal(t, models.NotFound, got.WordsToTranslate)
}

func TestEvaluate_AbsentKeysAreMissing(t *testing.T) {
	got := Evaluate(models.FieldMap{})
	assert.True(t, got.IsThereAJob)
	assert.Equal(t, models.NotFound, got.ApprovedPercent)

	assert.True(t, Evaluate(nil).IsThereAJob)
}

func TestEvaluate_Idempotent(t *testing.T) {
	fields := fieldMap(models.Found("87%"), models.Found("90%"), models.Found("42"))

	first := Evaluate(fields)
	second := Evaluate(fields)

	assert.Equal(t, first, second)
	assert.Equal(t, models.Found("87%"), fields[models.FieldTranslatedPercent], "input must not be modified")
}
