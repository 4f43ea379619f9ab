// Package charts renders the diagnostic figure for an analyzed fee window:
// four stacked panels written to a single PNG.
package charts

import (
	"image/color"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/feescope/feescope/internal/analysis"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 12 * vg.Inch

	histogramBins = 20
)

var (
	colorBlue = color.RGBA{B: 255, A: 255}
	colorRed  = color.RGBA{R: 255, A: 255}
)

// Render draws the four panels (fee vs utilization scatter, fee histogram,
// normal probability plot, fee-by-block scatter with anomalies in red) and
// writes them to path as one PNG.
func Render(path string, result *analysis.Result) error {
	if len(result.Records) == 0 {
		return errors.New("nothing to chart: the fee window is empty")
	}

	baseFees := make([]float64, len(result.Records))
	for i, record := range result.Records {
		baseFees[i] = float64(record.BaseFeePerGas)
	}

	feeVsRatio, err := feeVsRatioPanel(result)
	if err != nil {
		return errors.WithMessage(err, "failed to build the fee/utilization panel")
	}
	histogram, err := histogramPanel(baseFees)
	if err != nil {
		return errors.WithMessage(err, "failed to build the histogram panel")
	}
	probability, err := probPlotPanel(baseFees)
	if err != nil {
		return errors.WithMessage(err, "failed to build the probability panel")
	}
	anomalies, err := anomalyPanel(result)
	if err != nil {
		return errors.WithMessage(err, "failed to build the anomaly panel")
	}

	img := vgimg.New(chartWidth, chartHeight)
	tiles := draw.Tiles{
		Rows: 4, Cols: 1,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
		PadY: vg.Millimeter * 4,
	}
	panels := [][]*plot.Plot{{feeVsRatio}, {histogram}, {probability}, {anomalies}}
	canvases := plot.Align(panels, tiles, draw.New(img))
	for i := range panels {
		panels[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithMessage(err, "failed to create the chart file")
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return errors.WithMessage(err, "failed to write the chart")
	}
	return nil
}

func feeVsRatioPanel(result *analysis.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Base fee vs gas used ratio"
	p.X.Label.Text = "Base fee (Gwei)"
	p.Y.Label.Text = "Gas used ratio"

	points := make(plotter.XYs, len(result.Records))
	for i, record := range result.Records {
		points[i].X = float64(record.BaseFeePerGas)
		points[i].Y = record.GasUsedRatio
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = colorBlue
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)

	return p, nil
}

func histogramPanel(baseFees []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Base fee distribution"
	p.X.Label.Text = "Base fee (Gwei)"
	p.Y.Label.Text = "Blocks"

	hist, err := plotter.NewHist(plotter.Values(baseFees), histogramBins)
	if err != nil {
		return nil, err
	}
	hist.FillColor = colorBlue
	p.Add(hist)

	return p, nil
}

func probPlotPanel(baseFees []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Normal probability plot"
	p.X.Label.Text = "Theoretical quantiles"
	p.Y.Label.Text = "Ordered base fees (Gwei)"

	probPlot := analysis.NormalProbPlot(baseFees)
	points := make(plotter.XYs, len(probPlot.Ordered))
	for i := range probPlot.Ordered {
		points[i].X = probPlot.Theoretical[i]
		points[i].Y = probPlot.Ordered[i]
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = colorBlue
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(scatter)

	// The least-squares line is undefined for a single point.
	if !math.IsNaN(probPlot.Slope) {
		lo := probPlot.Theoretical[0]
		hi := probPlot.Theoretical[len(probPlot.Theoretical)-1]
		line, err := plotter.NewLine(plotter.XYs{
			{X: lo, Y: probPlot.Intercept + probPlot.Slope*lo},
			{X: hi, Y: probPlot.Intercept + probPlot.Slope*hi},
		})
		if err != nil {
			return nil, err
		}
		line.Color = colorRed
		p.Add(line)
	}

	return p, nil
}

func anomalyPanel(result *analysis.Result) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Base fee by block"
	p.X.Label.Text = "Block number"
	p.Y.Label.Text = "Base fee (Gwei)"

	var normal, anomalous plotter.XYs
	for _, record := range result.Records {
		point := plotter.XY{X: float64(record.BlockNumber), Y: float64(record.BaseFeePerGas)}
		if record.Anomaly {
			anomalous = append(anomalous, point)
		} else {
			normal = append(normal, point)
		}
	}

	normalScatter, err := plotter.NewScatter(normal)
	if err != nil {
		return nil, err
	}
	normalScatter.GlyphStyle.Color = colorBlue
	normalScatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(normalScatter)
	p.Legend.Add("normal", normalScatter)

	anomalyScatter, err := plotter.NewScatter(anomalous)
	if err != nil {
		return nil, err
	}
	anomalyScatter.GlyphStyle.Color = colorRed
	anomalyScatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(anomalyScatter)
	p.Legend.Add("anomaly", anomalyScatter)

	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}
