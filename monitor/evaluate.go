package monitor

import "github.com/use-agent/transwatch/models"

// Evaluate turns one extraction into a CheckResult.
//
// The project is complete only when both percentages are present and read
// exactly "100%". A missing value counts as incomplete work.
func Evaluate(fields models.FieldMap) models.CheckResult {
	translated := fields.Get(models.FieldTranslatedPercent)
	approved := fields.Get(models.FieldApprovedPercent)
	words := fields.Get(models.FieldWordsToTranslate)

	complete := translated.Is(models.CompletePercent) && approved.Is(models.CompletePercent)

	return models.CheckResult{
		TranslatedPercent: translated.String(),
		ApprovedPercent:   approved.String(),
		WordsToTranslate:  words.String(),
		IsThereAJob:       !complete,
	}
}
