package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"modgraph/internal/data/history"
	"modgraph/internal/engine/diffusion"
	"modgraph/internal/engine/order"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(34)

	formulaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)
)

const rule = "*********************************************"

// Console prints the global diffusion block followed by one block per sample
// present in the report.
func Console(w io.Writer, root string, report *diffusion.Report, samples []string) {
	g := report.Global
	writeBlock(w, "Global", [][2]string{
		{"Root path of target kernel:", fmt.Sprintf("'%s'", root)},
		{"Total number of domains (#D):", fmt.Sprint(g.ReachedModules)},
		{"Total number of elements (#E):", fmt.Sprint(g.ReachedElements)},
		{"Average elements per domain:", fmt.Sprintf("%.2f", g.AvgElements)},
		{"Average dependency wide (ADW):", fmt.Sprintf("%.2f", g.DirectWidth)},
		{"Average dependency len (ADL):", fmt.Sprintf("%.2f", g.MaxChainLength)},
		{"Diffusion Indicator (DI):", fmt.Sprintf("%.2f", g.DiffusionIndicator)},
	}, "Formula: DI = (#E / #D) * (ADW / #D) * ADL")

	for _, name := range samples {
		r, ok := report.Lookup(name)
		if !ok {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("sample %s not found", name)))
			continue
		}
		writeBlock(w, name, [][2]string{
			{"Number of domains (#D):", fmt.Sprint(r.ReachedModules)},
			{"Number of elements (#E):", fmt.Sprint(r.ReachedElements)},
			{"Exported elements (EX):", fmt.Sprint(r.ExportedElements)},
			{"Average elements per domain:", fmt.Sprintf("%.2f", r.AvgElements)},
			{"Dependency wide (DW):", fmt.Sprintf("%.2f", r.DirectWidth)},
			{"Max dependency length (DL):", fmt.Sprintf("%.2f", r.MaxChainLength)},
			{"Diffusion Indicator (DI):", fmt.Sprintf("%.2f", r.DiffusionIndicator)},
		}, "Formula: DI = (EX / #D) * (DW / #TD) * DL")
	}

	if report.CycleHits > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d cyclic dependents chains approximated", report.CycleHits)))
	}
}

func writeBlock(w io.Writer, title string, rows [][2]string, formula string) {
	fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("******************* [%s] ********************", title)))
	for _, row := range rows {
		fmt.Fprintln(w, labelStyle.Render(row[0])+row[1])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, formulaStyle.Render(formula))
	fmt.Fprintln(w, bannerStyle.Render(rule))
	fmt.Fprintln(w)
}

// ConsoleOrdering prints the resolved sequence, one module per line.
func ConsoleOrdering(w io.Writer, o *order.Ordering) {
	fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("Initialization order for %s", o.Root)))
	for i, name := range o.Modules() {
		deps := o.Dependencies[name]
		line := fmt.Sprintf("%4d  %s", i+1, name)
		if len(deps) > 0 {
			line += formulaStyle.Render("  <- " + strings.Join(deps, ", "))
		}
		fmt.Fprintln(w, line)
	}
	for _, f := range o.Conflicts {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("fixup %s: %s", f.Symbol, strings.Join(f.Candidates, " | "))))
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("[OK]: %d modules ordered", len(o.Modules()))))
}

// ConsoleTrend prints one line per recorded run of a sample, oldest first.
func ConsoleTrend(w io.Writer, r history.TrendReport) {
	fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("Diffusion history for %s (%d runs, window %s)", r.Sample, r.RunCount, r.Window)))
	fmt.Fprintln(w, labelStyle.Render("Timestamp / version")+"#D      #E      DI       dDI      avg")
	for _, p := range r.Points {
		label := p.Timestamp.UTC().Format("2006-01-02 15:04") + " " + p.Version
		fmt.Fprintf(w, "%s%-7d %-7d %-8.2f %-8.2f %.2f\n",
			labelStyle.Render(label), p.Modules, p.Elements, p.Indicator, p.DeltaIndicator, p.AvgIndicator)
	}
}
