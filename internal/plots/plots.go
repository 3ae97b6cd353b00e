// Package plots renders the exploration and evaluation figures as PNG files with gonum/plot.
package plots

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/newsclf/metrics"
	"github.com/ezoic/newsclf/pkg/errors"
)

// set2 is the first colors of ColorBrewer's Set2 qualitative palette.
var set2 = []color.Color{
	color.RGBA{R: 0x66, G: 0xc2, B: 0xa5, A: 0xff},
	color.RGBA{R: 0xfc, G: 0x8d, B: 0x62, A: 0xff},
	color.RGBA{R: 0x8d, G: 0xa0, B: 0xcb, A: 0xff},
	color.RGBA{R: 0xe7, G: 0x8a, B: 0xc3, A: 0xff},
}

var (
	darkOrange = color.RGBA{R: 0xff, G: 0x8c, A: 0xff}
	navy       = color.RGBA{B: 0x80, A: 0xff}
)

func seriesColor(i int) color.Color {
	return set2[i%len(set2)]
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: a}
}

// save writes p to path, creating the parent directory.
func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "plots: create %s", filepath.Dir(path))
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "plots: save %s", path)
	}
	return nil
}

// LabelDistribution draws one bar per class count.
func LabelDistribution(path string, names []string, counts []float64) error {
	if len(names) != len(counts) {
		return errors.NewDimensionError("plots.LabelDistribution", len(names), len(counts), 0)
	}

	p := plot.New()
	p.Title.Text = "Distribution of Fake vs Real News"
	p.X.Label.Text = "label"
	p.Y.Label.Text = "count"

	for i, c := range counts {
		bars, err := plotter.NewBarChart(plotter.Values{c}, vg.Points(60))
		if err != nil {
			return errors.Wrap(err, "plots: bar chart")
		}
		bars.XMin = float64(i)
		bars.Color = seriesColor(i)
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(names...)
	p.Y.Min = 0

	return save(p, 6*vg.Inch, 4*vg.Inch, path)
}

// Series is a named sample of values.
type Series struct {
	Name   string
	Values []float64
}

// HistogramEdges returns bins+1 equal-width edges spanning all series, like numpy's
// histogram_bin_edges. A constant sample is widened to [v-0.5, v+0.5].
func HistogramEdges(series []Series, bins int) ([]float64, error) {
	if bins <= 0 {
		return nil, errors.NewValidationError("bins", "must be positive", bins)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil, errors.NewModelError("plots.HistogramEdges", "no values", errors.ErrEmptyData)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return floats.Span(make([]float64, bins+1), lo, hi), nil
}

// HistogramCounts bins values with the given edges. The last bin includes the upper edge.
func HistogramCounts(values, edges []float64) []float64 {
	x := append([]float64(nil), values...)
	sort.Float64s(x)

	dividers := append([]float64(nil), edges...)
	dividers[len(dividers)-1] = math.Nextafter(dividers[len(dividers)-1], math.Inf(1))
	return stat.Histogram(nil, dividers, x, nil)
}

// TextLengthHistogram draws a step outline per series over common bins.
func TextLengthHistogram(path string, series []Series, bins int) error {
	edges, err := HistogramEdges(series, bins)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Text Length Distribution"
	p.X.Label.Text = "text_length"
	p.Y.Label.Text = "Count"
	p.Legend.Top = true

	for i, s := range series {
		counts := HistogramCounts(s.Values, edges)
		// The outline starts and ends on the axis.
		pts := plotter.XYs{{X: edges[0], Y: 0}}
		for j, n := range counts {
			pts = append(pts, plotter.XY{X: edges[j], Y: n})
		}
		last := edges[len(edges)-1]
		pts = append(pts, plotter.XY{X: last, Y: counts[len(counts)-1]}, plotter.XY{X: last, Y: 0})

		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(err, "plots: histogram line")
		}
		line.StepStyle = plotter.PostStep
		line.Color = seriesColor(i)
		line.Width = vg.Points(1.5)
		line.FillColor = withAlpha(seriesColor(i), 0x40)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Y.Min = 0

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// ROCCurve draws the curve with its AUC in the legend and the chance diagonal.
func ROCCurve(path string, roc *metrics.ROC) error {
	pts := make(plotter.XYs, len(roc.FPR))
	for i := range roc.FPR {
		pts[i].X, pts[i].Y = roc.FPR[i], roc.TPR[i]
	}

	p := plot.New()
	p.Title.Text = "Receiver Operating Characteristic (ROC)"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"

	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "plots: roc line")
	}
	curve.Color = darkOrange
	curve.Width = vg.Points(2)

	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "plots: diagonal")
	}
	diagonal.Color = navy
	diagonal.Width = vg.Points(2)
	diagonal.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(curve, diagonal)
	p.Legend.Add(fmt.Sprintf("ROC curve (area = %.2f)", roc.AUC()), curve)
	p.Legend.Top = false
	p.Legend.Left = false
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05

	return save(p, 6*vg.Inch, 4*vg.Inch, path)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ with true labels top to bottom.
type confusionGrid struct {
	cm *mat.Dense
}

func (g confusionGrid) Dims() (c, r int) {
	r, c = g.cm.Dims()
	return c, r
}

func (g confusionGrid) Z(c, r int) float64 {
	n, _ := g.cm.Dims()
	return g.cm.At(n-1-r, c)
}

func (g confusionGrid) X(c int) float64 { return float64(c) }

func (g confusionGrid) Y(r int) float64 { return float64(r) }

// blues runs from near-white to dark blue.
type blues int

func (n blues) Colors() []color.Color {
	out := make([]color.Color, int(n))
	for i := range out {
		t := float64(i) / math.Max(float64(n)-1, 1)
		out[i] = color.RGBA{
			R: uint8(247 - t*(247-8)),
			G: uint8(251 - t*(251-48)),
			B: uint8(255 - t*(255-107)),
			A: 0xff,
		}
	}
	return out
}

// ConfusionMatrix draws cm as a heat map with the count in each cell.
// Rows are true labels and columns predicted labels, both in names order.
func ConfusionMatrix(path string, cm *mat.Dense, names []string) error {
	r, c := cm.Dims()
	if r != c || r != len(names) {
		return errors.NewDimensionError("plots.ConfusionMatrix", len(names), r, 0)
	}

	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	heat := plotter.NewHeatMap(confusionGrid{cm: cm}, blues(64))
	heat.Min = 0
	heat.Max = math.Max(mat.Max(cm), 1)
	p.Add(heat)

	var (
		pts    plotter.XYs
		labels []string
		light  []bool
	)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := cm.At(i, j)
			pts = append(pts, plotter.XY{X: float64(j), Y: float64(r - 1 - i)})
			labels = append(labels, fmt.Sprintf("%.0f", v))
			light = append(light, v > heat.Max/2)
		}
	}
	counts, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "plots: cell labels")
	}
	for i := range counts.TextStyle {
		counts.TextStyle[i].XAlign = text.XCenter
		counts.TextStyle[i].YAlign = text.YCenter
		counts.TextStyle[i].Font.Size = vg.Points(14)
		if light[i] {
			counts.TextStyle[i].Color = color.White
		}
	}
	p.Add(counts)

	xTicks := make([]plot.Tick, len(names))
	yTicks := make([]plot.Tick, len(names))
	for i, name := range names {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[i] = plot.Tick{Value: float64(r - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Min, p.X.Max = -0.5, float64(c)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(r)-0.5

	return save(p, 5*vg.Inch, 4*vg.Inch, path)
}
