package plots

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/newsclf/pkg/errors"
)

// Word cloud canvas in pixels at 96 DPI.
const (
	cloudWidth  = 400
	cloudHeight = 300

	maxFontPx = 60.0
	minFontPx = 8.0
	// glyphAspect approximates the advance width of a glyph relative to its font size.
	glyphAspect = 0.6
	spiralStep  = 0.1
	spiralLimit = 20000
)

// WordCount is a token and its frequency.
type WordCount struct {
	Word  string
	Count int
}

// TopWords counts whitespace-separated tokens across texts and returns the n most frequent,
// ties broken lexically.
func TopWords(texts []string, n int) []WordCount {
	counts := make(map[string]int)
	for _, t := range texts {
		for _, w := range strings.Fields(t) {
			counts[w]++
		}
	}
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// placedWord is a word positioned on the cloud canvas. X, Y is the box centre in pixels.
type placedWord struct {
	WordCount
	X, Y   float64
	FontPx float64
	W, H   float64
}

func (p placedWord) overlaps(q placedWord) bool {
	return math.Abs(p.X-q.X)*2 < p.W+q.W && math.Abs(p.Y-q.Y)*2 < p.H+q.H
}

func (p placedWord) inside(width, height float64) bool {
	return p.X-p.W/2 >= 0 && p.X+p.W/2 <= width && p.Y-p.H/2 >= 0 && p.Y+p.H/2 <= height
}

// layoutWords places words in decreasing frequency along an Archimedean spiral from the centre.
// Font size is proportional to frequency; words that find no free space are left out.
func layoutWords(words []WordCount, width, height float64) []placedWord {
	if len(words) == 0 {
		return nil
	}
	maxCount := float64(words[0].Count)
	for _, w := range words {
		maxCount = math.Max(maxCount, float64(w.Count))
	}

	var placed []placedWord
	for _, w := range words {
		size := math.Max(maxFontPx*float64(w.Count)/maxCount, minFontPx)
		// Shrink words wider than the canvas.
		size = math.Min(size, width/(glyphAspect*float64(len(w.Word))))
		if size < minFontPx {
			continue
		}

		cand := placedWord{WordCount: w, FontPx: size, W: glyphAspect * size * float64(len(w.Word)), H: size}
		for k := 0; k < spiralLimit; k++ {
			t := float64(k) * spiralStep
			cand.X = width/2 + t*math.Cos(t)
			cand.Y = height/2 + t*math.Sin(t)*height/width
			if !cand.inside(width, height) {
				if t > width {
					break
				}
				continue
			}
			free := true
			for _, q := range placed {
				if cand.overlaps(q) {
					free = false
					break
				}
			}
			if free {
				placed = append(placed, cand)
				break
			}
		}
	}
	return placed
}

// WordCloud renders words on a black 400x300 canvas, largest first near the centre.
func WordCloud(path, title string, words []WordCount) error {
	placed := layoutWords(words, cloudWidth, cloudHeight)
	if len(placed) == 0 {
		return errors.NewModelError("plots.WordCloud", "no words to draw", errors.ErrEmptyData)
	}

	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.Text = title
	p.Title.TextStyle.Color = color.White
	p.HideAxes()

	pts := make(plotter.XYs, len(placed))
	labels := make([]string, len(placed))
	for i, w := range placed {
		pts[i] = plotter.XY{X: w.X, Y: cloudHeight - w.Y}
		labels[i] = w.Word
	}
	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "plots: word labels")
	}

	cmap := moreland.Kindlmann()
	cmap.SetMax(1)
	cmap.SetMin(0)
	for i, w := range placed {
		st := &lbls.TextStyle[i]
		st.XAlign = text.XCenter
		st.YAlign = text.YCenter
		// One canvas pixel is 0.75pt at 96 DPI.
		st.Font.Size = vg.Points(w.FontPx * 0.75)
		// Skip the dark end of the map so words stay visible on black.
		c, err := cmap.At(0.35 + 0.65*float64(w.Count)/float64(placed[0].Count))
		if err == nil {
			st.Color = c
		} else {
			st.Color = color.White
		}
	}
	p.Add(lbls)
	p.X.Min, p.X.Max = 0, cloudWidth
	p.Y.Min, p.Y.Max = 0, cloudHeight
	p.X.Padding, p.Y.Padding = 0, 0

	const pxToPt = vg.Inch / 96
	return save(p, cloudWidth*pxToPt, cloudHeight*pxToPt, path)
}
