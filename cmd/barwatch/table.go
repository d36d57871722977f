package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

// renderBars prints one row per bar with the occupancy percent computed here.
func renderBars(w io.Writer, bars []entity.Bar, fetchedAt time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Count", "Capacity", "Occupancy", "Address"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	total, capacity := 0, 0
	for _, b := range bars {
		t.AppendRow(table.Row{b.ID, b.Name, b.CurrentCount, b.Capacity, occupancy(b), b.Address})
		total += b.CurrentCount
		capacity += b.Capacity
	}
	t.AppendFooter(table.Row{"", "Total", total, capacity, "", ""})
	if !fetchedAt.IsZero() {
		t.SetCaption("as of %s", fetchedAt.Format(time.TimeOnly))
	}
	t.Render()
}

func occupancy(b entity.Bar) string {
	s := fmt.Sprintf("%.1f%%", b.OccupancyPercent())
	if b.OverCapacity() {
		s += " FULL"
	}
	return s
}
