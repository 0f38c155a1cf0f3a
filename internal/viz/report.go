package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/metrics"
)

// CheckReport renders planning-limit status for each limited node, followed
// by the violation table and run metrics.
func CheckReport(tr *dynamo.Trajectory, limits map[string]metrics.Limit, viols []metrics.Violation, runMetrics map[string]float64) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("PSMC planning limit check"))
	sb.WriteString("\n\n")

	byMSID := make(map[string][]metrics.Violation)
	for _, v := range viols {
		byMSID[v.MSID] = append(byMSID[v.MSID], v)
	}

	for _, msid := range metrics.SortedMSIDs(limits) {
		l := limits[msid]
		temps := tr.Channel(l.Node, true)

		status := StatusOK.Render("OK")
		if vs := byMSID[msid]; len(vs) > 0 {
			// Over the planning limit but under yellow is a warning.
			style := StatusWarn
			for _, v := range vs {
				if v.MaxTemp >= l.Yellow {
					style = StatusFail
				}
			}
			status = style.Render(fmt.Sprintf("%d VIOLATION(S)", len(vs)))
		}

		fmt.Fprintf(&sb, "%s %s  %s %s  %s\n",
			Title.Render(strings.ToUpper(msid)),
			status,
			MetricLabel.Render("planning limit"),
			MetricValue.Render(fmt.Sprintf("%.2f C", l.PlanningLimit())),
			SparklineChart(temps, 40, l.PlanningLimit()),
		)
	}

	if len(viols) == 0 {
		sb.WriteString(Subtle.Render("no planning limit violations"))
		sb.WriteString("\n")
	} else {
		var rows strings.Builder
		fmt.Fprintf(&rows, "%-8s %12s %12s %9s %8s\n", "MSID", "TSTART", "TSTOP", "DURATION", "MAX")
		for _, v := range viols {
			fmt.Fprintf(&rows, "%-8s %12.1f %12.1f %8.0fs %8.2f\n",
				strings.ToUpper(v.MSID), v.Start, v.Stop, v.Duration(), v.MaxTemp)
		}
		sb.WriteString("\n")
		sb.WriteString(Panel.Render(strings.TrimRight(rows.String(), "\n")))
		sb.WriteString("\n")
	}

	if len(runMetrics) > 0 {
		sb.WriteString("\n")
		sb.WriteString(Separator(60))
		sb.WriteString("\n")
		names := make([]string, 0, len(runMetrics))
		for name := range runMetrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s %s\n",
				MetricLabel.Render(fmt.Sprintf("%-20s", name)),
				MetricValue.Render(fmt.Sprintf("%.3f", runMetrics[name])))
		}
	}

	return sb.String()
}

// ValidationReport renders residual quantile checks for one MSID.
func ValidationReport(msid string, checks []metrics.QuantileCheck) string {
	var sb strings.Builder
	sb.WriteString(Title.Render(strings.ToUpper(msid) + " residuals"))
	sb.WriteString("\n")
	for _, c := range checks {
		status := StatusOK.Render("ok")
		if !c.OK() {
			status = StatusFail.Render("FAIL")
		}
		fmt.Fprintf(&sb, "  q%02d %8.3f  limit %6.2f  %s\n", c.Quantile, c.Value, c.Limit, status)
	}
	return sb.String()
}
