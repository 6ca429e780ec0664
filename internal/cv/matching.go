package cv

import (
	"image"
	"math"
)

// MatchResult contains overlap matching results
type MatchResult struct {
	OffsetX int
	OffsetY int
	Score   float64 // 0.0-1.0, 1.0 = perfect match
}

// Accepted reports whether the score meets threshold. Equality is accepted.
func (r MatchResult) Accepted(threshold float64) bool {
	return r.Score >= threshold
}

// Matcher finds where template sits inside search
type Matcher func(search, template *image.RGBA) MatchResult

const (
	// flatVariance is the per-pixel variance below which a region counts as uniform
	flatVariance = 1e-6
	// flatMeanTolerance is how close two uniform regions' means must be to match
	flatMeanTolerance = 0.5
)

// MatchOverlap slides template over search and returns the position with the
// highest normalized cross-correlation score. Ties resolve to the smallest Y,
// then the smallest X. A template larger than search yields a zero result.
func MatchOverlap(search, template *image.RGBA) MatchResult {
	if search == nil || template == nil {
		return MatchResult{}
	}

	sb, tb := search.Bounds(), template.Bounds()
	tw, th := tb.Dx(), tb.Dy()
	if tw == 0 || th == 0 || tw > sb.Dx() || th > sb.Dy() {
		return MatchResult{}
	}

	img := toGrayPlane(search)
	tpl := toGrayPlane(template)
	n := float64(tw * th)

	// Zero-mean template so the cross term needs no per-window mean correction
	var tplSum float64
	for _, v := range tpl.pix {
		tplSum += v
	}
	tplMean := tplSum / n

	var tplVar float64
	for i, v := range tpl.pix {
		d := v - tplMean
		tpl.pix[i] = d
		tplVar += d * d
	}
	tplFlat := tplVar/n < flatVariance

	sum, sumSq := integralImages(img)
	stride := img.width + 1

	best := MatchResult{Score: -1}
	maxY := img.height - th
	maxX := img.width - tw

	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			a := y*stride + x
			b := y*stride + x + tw
			c := (y+th)*stride + x
			d := (y+th)*stride + x + tw

			winSum := sum[d] - sum[b] - sum[c] + sum[a]
			winSq := sumSq[d] - sumSq[b] - sumSq[c] + sumSq[a]
			winVar := winSq - winSum*winSum/n
			winFlat := winVar/n < flatVariance

			var score float64
			switch {
			case tplFlat && winFlat:
				if math.Abs(winSum/n-tplMean) <= flatMeanTolerance {
					score = 1
				}
			case tplFlat || winFlat:
				score = 0
			default:
				score = crossCorrelation(img, tpl, x, y, tw, th) / math.Sqrt(winVar*tplVar)
			}

			score = clampScore(score)
			if score > best.Score {
				best = MatchResult{OffsetX: x, OffsetY: y, Score: score}
			}
		}
	}

	return best
}

// crossCorrelation sums image*template over the window at (x, y).
// The template plane must already be zero-mean.
func crossCorrelation(img, tpl *grayPlane, x, y, tw, th int) float64 {
	var acc float64
	for ty := 0; ty < th; ty++ {
		irow := img.pix[(y+ty)*img.width+x : (y+ty)*img.width+x+tw]
		trow := tpl.pix[ty*tw : ty*tw+tw]
		for i, t := range trow {
			acc += irow[i] * t
		}
	}
	return acc
}

// integralImages returns summed-area tables of values and squared values,
// each (width+1)*(height+1) with a zero first row and column.
func integralImages(p *grayPlane) (sum, sumSq []float64) {
	stride := p.width + 1
	sum = make([]float64, stride*(p.height+1))
	sumSq = make([]float64, stride*(p.height+1))

	for y := 0; y < p.height; y++ {
		var rowSum, rowSq float64
		for x := 0; x < p.width; x++ {
			v := p.pix[y*p.width+x]
			rowSum += v
			rowSq += v * v
			idx := (y+1)*stride + x + 1
			sum[idx] = sum[idx-stride] + rowSum
			sumSq[idx] = sumSq[idx-stride] + rowSq
		}
	}
	return sum, sumSq
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
