package relation

import (
	"gonum.org/v1/gonum/stat"

	"maskstats/internal/models"
)

// Summarize reports the pair count and the population mean and standard
// deviation of reference/dependent area ratios. No pairs yields zeros.
func Summarize(pairs []models.MatchedPair) models.RelationalStats {
	if len(pairs) == 0 {
		return models.RelationalStats{}
	}

	ratios := make([]float64, len(pairs))
	for i, p := range pairs {
		ratios[i] = p.Ratio
	}
	mean, std := stat.PopMeanStdDev(ratios, nil)

	return models.RelationalStats{
		MatchedPairs: len(pairs),
		AvgRatio:     mean,
		StdRatio:     std,
	}
}

// Analyze runs matching and summarization in one call
func Analyze(ref, dep *models.MaskStack) (models.RelationalStats, []models.MatchedPair, error) {
	pairs, err := Match(ref, dep)
	if err != nil {
		return models.RelationalStats{}, nil, err
	}
	return Summarize(pairs), pairs, nil
}
