package stages

import (
	"fmt"

	"github.com/ezoic/newsclf/internal/dataset"
	"github.com/ezoic/newsclf/internal/explore"
	"github.com/ezoic/newsclf/internal/plots"
)

// ExploreResult is the output of Explore.
type ExploreResult struct {
	Summary explore.Summary
	// Plots lists the files written, in order.
	Plots []string
}

// Explore prints the dataset summary and renders the label distribution, one word cloud per
// class and the text length histogram.
func (r *Runner) Explore(data *dataset.Cleaned) (*ExploreResult, error) {
	res := &ExploreResult{}
	err := r.timed("explore", func() error {
		res.Summary = explore.Summarize(data)
		if err := res.Summary.Write(r.out); err != nil {
			return err
		}

		names := dataset.LabelNames()
		counts := make([]float64, len(names))
		for _, lc := range res.Summary.LabelCounts {
			counts[lc.Label] = float64(lc.Count)
		}
		path := r.cfg.Paths.Plot(LabelDistributionPlot)
		if err := plots.LabelDistribution(path, names, counts); err != nil {
			return err
		}
		res.Plots = append(res.Plots, path)

		clouds := []struct {
			label dataset.Label
			file  string
		}{
			{dataset.Fake, WordCloudFakePlot},
			{dataset.Real, WordCloudRealPlot},
		}
		for _, c := range clouds {
			words := plots.TopWords(data.TextsByLabel(c.label), r.cfg.Explore.WordCloudWords)
			if len(words) == 0 {
				r.logger.Warn("no words for word cloud, skipping", "label", c.label.String())
				continue
			}
			path := r.cfg.Paths.Plot(c.file)
			if err := plots.WordCloud(path, fmt.Sprintf("%s News Word Cloud", c.label), words); err != nil {
				return err
			}
			res.Plots = append(res.Plots, path)
		}

		series := make([]plots.Series, len(names))
		for i, name := range names {
			series[i].Name = name
		}
		for _, rec := range data.Records {
			series[rec.Label].Values = append(series[rec.Label].Values, float64(rec.TextLength))
		}
		nonEmpty := series[:0]
		for _, s := range series {
			if len(s.Values) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		path = r.cfg.Paths.Plot(TextLengthPlot)
		if err := plots.TextLengthHistogram(path, nonEmpty, r.cfg.Explore.Bins); err != nil {
			return err
		}
		res.Plots = append(res.Plots, path)

		fmt.Fprintf(r.out, "\nPlots written to %s\n", r.cfg.Paths.PlotsDir)
		return nil
	})
	return res, err
}
