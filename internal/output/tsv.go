package output

import (
	"fmt"
	"strings"

	"modgraph/internal/engine/diffusion"
)

// MetricsTSV writes one row per module followed by the global row.
func MetricsTSV(report *diffusion.Report) string {
	var buf strings.Builder

	buf.WriteString("Module\tExported\tDirectWidth\tMaxChainLength\tReachedModules\tReachedElements\tAvgElements\tDiffusionIndicator\n")
	for _, r := range report.Modules {
		writeTSVRow(&buf, r)
	}
	writeTSVRow(&buf, report.Global)
	return buf.String()
}

func writeTSVRow(buf *strings.Builder, r diffusion.Record) {
	fmt.Fprintf(buf, "%s\t%d\t%.2f\t%.2f\t%d\t%d\t%.2f\t%.4f\n",
		r.Name, r.ExportedElements, r.DirectWidth, r.MaxChainLength,
		r.ReachedModules, r.ReachedElements, r.AvgElements, r.DiffusionIndicator)
}
