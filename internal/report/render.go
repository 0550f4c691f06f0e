package report

import (
	"fmt"
	"strings"
	"time"
)

type column struct {
	title string
	width int
	value func(Row) string
}

var columns = []column{
	{"No.", 5, func(r Row) string { return r.No }},
	{"Slot", 9, func(r Row) string { return r.Slot }},
	{"Medicine Name", 24, func(r Row) string { return r.Name }},
	{"Scheduled", 10, func(r Row) string { return r.Scheduled }},
	{"Taken", 7, func(r Row) string { return r.Taken }},
	{"Status", 8, func(r Row) string { return r.Status }},
	{"Schedule vs Taken", 18, func(r Row) string { return r.ScheduleVsTaken }},
	{"Scheduled Slot Gap", 19, func(r Row) string { return r.ScheduledSlotGap }},
	{"Actual Taken Slot Gap", 22, func(r Row) string { return r.ActualTakenSlotGap }},
}

// Render writes the report as the fixed-column tabular document handed to
// the presentation collaborator.
func Render(rep *Report) string {
	var sb strings.Builder

	totalWidth := 0
	for _, col := range columns {
		totalWidth += col.width
	}

	center := func(s string) string {
		pad := (totalWidth - len(s)) / 2
		if pad < 0 {
			pad = 0
		}
		return strings.Repeat(" ", pad) + s
	}

	sb.WriteString(center("MEDICINETT") + "\n")
	sb.WriteString(center("Daily Medicine Report") + "\n")
	sb.WriteString(fmt.Sprintf("%*s\n\n", totalWidth, "Date: "+rep.Date))

	for _, col := range columns {
		fmt.Fprintf(&sb, "%-*s", col.width, col.title)
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", totalWidth) + "\n")

	for _, row := range rep.Rows {
		for _, col := range columns {
			fmt.Fprintf(&sb, "%-*s", col.width, clip(col.value(row), col.width-1))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat("-", totalWidth) + "\n\n")

	sb.WriteString("Summary\n")
	fmt.Fprintf(&sb, "Taken: %d | Missed: %d | Pending: %d\n\n",
		rep.Summary.Taken, rep.Summary.Missed, rep.Summary.Pending)

	fmt.Fprintf(&sb, "Generated: %s | MEDICINETT System\n",
		time.Now().Format("2006-01-02 15:04:05"))

	return sb.String()
}

func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
