package plotter

import (
	"strings"
	"testing"

	"github.com/ecotner/pydata-mdp/chain"
	"github.com/ecotner/pydata-mdp/dice"
	"github.com/ecotner/pydata-mdp/sensitivity"
	"github.com/ecotner/pydata-mdp/solver"
)

func solveGame(t *testing.T) (*solver.Solution, *chain.Trajectory) {
	t.Helper()
	model, err := dice.BuildModel(20, 21)
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}
	prob, err := solver.NewProblem(model, 1.0)
	if err != nil {
		t.Fatalf("NewProblem failed: %v", err)
	}
	sol, err := solver.Solve(prob, nil, nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	ch, err := chain.Reduce(model, sol.Policy)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	tr, err := ch.PropagateFrom(0, 12)
	if err != nil {
		t.Fatalf("PropagateFrom failed: %v", err)
	}
	return sol, tr
}

func TestNewSVGPlotter(t *testing.T) {
	p := NewSVGPlotter(800, 600)

	if p.Width != 800 {
		t.Errorf("Expected width 800, got %f", p.Width)
	}
	if p.Height != 600 {
		t.Errorf("Expected height 600, got %f", p.Height)
	}
	if p.XLabel != "Score" {
		t.Errorf("Expected default XLabel 'Score', got '%s'", p.XLabel)
	}
	if p.YLabel != "Value" {
		t.Errorf("Expected default YLabel 'Value', got '%s'", p.YLabel)
	}
	if p.Series != nil {
		t.Error("Expected Series to be nil initially")
	}
}

func TestSetTitle(t *testing.T) {
	p := NewSVGPlotter(800, 600)
	p.SetTitle("Test Plot")

	if p.Title != "Test Plot" {
		t.Errorf("Expected title 'Test Plot', got '%s'", p.Title)
	}

	// Test chaining
	result := p.SetTitle("Another Title")
	if result != p {
		t.Error("SetTitle should return the plotter for chaining")
	}
}

func TestAddSeriesDefaultColor(t *testing.T) {
	p := NewSVGPlotter(800, 600)
	p.AddSeries([]float64{0, 1}, []float64{0, 1}, "Series1", "")
	p.AddSeries([]float64{0, 1}, []float64{0, 2}, "Series2", "")

	if p.Series[0].Color == "" {
		t.Error("First series should have a default color")
	}
	if p.Series[1].Color == "" {
		t.Error("Second series should have a default color")
	}
	if p.Series[0].Color == p.Series[1].Color {
		t.Error("Different series should have different default colors")
	}
}

func TestAddBars(t *testing.T) {
	p := NewSVGPlotter(800, 600)
	p.AddBars([]float64{0, 1, 2}, []float64{0.2, 0.5, 0.3}, "dist", "#112233")

	if len(p.Series) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(p.Series))
	}
	if !p.Series[0].Bars {
		t.Error("Expected bar series")
	}
	if p.Series[0].Color != "#112233" {
		t.Errorf("Expected explicit color kept, got %s", p.Series[0].Color)
	}
}

func TestRenderBasic(t *testing.T) {
	p := NewSVGPlotter(800, 600)
	p.SetTitle("Test Plot")
	p.AddSeries([]float64{0, 1, 2, 3}, []float64{0, 1, 4, 9}, "squares", "")

	svg := p.Render()

	if !strings.HasPrefix(svg, "<svg") {
		t.Error("Expected output to start with <svg")
	}
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("Expected output to end with </svg>")
	}
	if !strings.Contains(svg, "Test Plot") {
		t.Error("Expected title in output")
	}
	if !strings.Contains(svg, "squares") {
		t.Error("Expected legend label in output")
	}
	if !strings.Contains(svg, "<path") {
		t.Error("Expected a line path in output")
	}
	if p.LastPlot == nil {
		t.Fatal("Expected LastPlot metadata")
	}
	if p.LastPlot.Xmin >= 0 {
		t.Errorf("Expected padded Xmin below 0, got %f", p.LastPlot.Xmin)
	}
	if p.LastPlot.Ymax <= 9 {
		t.Errorf("Expected padded Ymax above 9, got %f", p.LastPlot.Ymax)
	}
}

func TestRenderEmpty(t *testing.T) {
	svg := NewSVGPlotter(400, 300).Render()

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("Expected a well-formed SVG even with no series")
	}
}

func TestRenderEscapesText(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	p.SetTitle("a < b & c")

	svg := p.Render()

	if strings.Contains(svg, "a < b & c") {
		t.Error("Expected title to be escaped")
	}
	if !strings.Contains(svg, "a &lt; b &amp; c") {
		t.Error("Expected escaped title in output")
	}
}

func TestRenderBars(t *testing.T) {
	p := NewSVGPlotter(400, 300)
	p.AddBars([]float64{0, 1, 2}, []float64{0.2, 0.5, 0.3}, "", "")

	svg := p.Render()

	// Background plus one rect per bar
	if got := strings.Count(svg, "<rect"); got != 4 {
		t.Errorf("Expected 4 rects, got %d", got)
	}
}

func TestPlotValues(t *testing.T) {
	sol, _ := solveGame(t)

	svg, data := PlotValues(sol, 800, 600)

	if !strings.Contains(svg, "keep playing") || !strings.Contains(svg, "bank now") {
		t.Error("Expected both value curves in legend")
	}
	if len(data.Series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(data.Series))
	}
	if len(data.Series[0].X) != 22 {
		t.Errorf("Expected 22 non-terminal scores, got %d", len(data.Series[0].X))
	}
	if data.Xmax < 21 {
		t.Errorf("Expected x range to cover score 21, got %f", data.Xmax)
	}
}

func TestPlotTrajectory(t *testing.T) {
	_, tr := solveGame(t)

	svg, data := PlotTrajectory(tr, []int{0, 10, 22}, 800, 600)

	if !strings.Contains(svg, "busted") {
		t.Error("Expected terminal state label in legend")
	}
	if !strings.Contains(svg, "Step") {
		t.Error("Expected step axis label")
	}
	if len(data.Series) != 3 {
		t.Errorf("Expected 3 series, got %d", len(data.Series))
	}

	_, all := PlotTrajectory(tr, nil, 800, 600)
	if len(all.Series) != 23 {
		t.Errorf("Expected every state plotted, got %d", len(all.Series))
	}
}

func TestPlotSurvival(t *testing.T) {
	_, tr := solveGame(t)
	ab := tr.Absorption(22)

	svg, data := PlotSurvival(ab, 800, 600)

	if !strings.Contains(svg, "still playing") {
		t.Error("Expected survival label in legend")
	}
	if len(data.Series[0].Y) != len(ab.Survival) {
		t.Errorf("Expected %d survival points, got %d",
			len(ab.Survival), len(data.Series[0].Y))
	}
}

func TestPlotSweep(t *testing.T) {
	a := sensitivity.NewAnalyzer(
		sensitivity.Params{NSides: 6, MaxScore: 10, Discount: 1.0},
		sensitivity.StartValueScorer())
	sr, err := a.SweepMaxScore([]int{8, 10, 12})
	if err != nil {
		t.Fatalf("SweepMaxScore failed: %v", err)
	}

	svg, data := PlotSweep(sr, 800, 600)

	if !strings.Contains(svg, "Sweep over maxScore") {
		t.Error("Expected sweep title in output")
	}
	if len(data.Series) != 1 {
		t.Fatalf("Expected 1 series, got %d", len(data.Series))
	}
	if len(data.Series[0].X) != 3 {
		t.Errorf("Expected 3 swept values, got %d", len(data.Series[0].X))
	}
}

func TestPlotDistribution(t *testing.T) {
	svg, data := PlotDistribution([]float64{0.1, 0.6, 0.3}, "final scores", 400, 300)

	if !strings.Contains(svg, "final scores") {
		t.Error("Expected title in output")
	}
	if !data.Series[0].Bars {
		t.Error("Expected a bar series")
	}
}
