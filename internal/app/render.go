package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/executor"
	"github.com/vk/buildgridgo/internal/scheduler"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	dimStyle     = cellStyle.Foreground(lipgloss.Color("241"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = cellStyle.Foreground(lipgloss.Color("42"))
	failureStyle = cellStyle.Foreground(lipgloss.Color("196")).Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderTargets lists visible targets in declaration order.
func renderTargets(targets []*dag.Target) string {
	t := newTable("TARGET", "DEFAULT", "DEPENDS ON", "DESCRIPTION")
	for _, target := range targets {
		if target.Hidden() {
			continue
		}
		def := ""
		if target.IsDefault() {
			def = "✔"
		}
		t.Row(target.Name(), def, dependencyList(target), target.Description())
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 2:
			return dimStyle
		default:
			return cellStyle
		}
	}).Render()
}

func dependencyList(t *dag.Target) string {
	var names []string
	for _, d := range t.Dependencies() {
		names = append(names, d.Name())
	}
	for _, d := range t.AsyncDependencies() {
		names = append(names, d.Name()+" (async)")
	}
	return strings.Join(names, ", ")
}

// renderPlan shows the execution order.
func renderPlan(plan *scheduler.Plan) string {
	t := newTable("#", "TARGET", "ACTIONS", "NOTE")
	requested := make(map[string]bool)
	for _, r := range plan.Requested() {
		requested[r.Name()] = true
	}
	for i, target := range plan.Targets() {
		var note []string
		if requested[target.Name()] {
			note = append(note, "requested")
		}
		if plan.Deferred(target.Name()) {
			note = append(note, "deferred")
		}
		t.Row(strconv.Itoa(i+1), target.Name(), actionList(target), strings.Join(note, ", "))
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	}).Render()
}

func actionList(t *dag.Target) string {
	var names []string
	for _, a := range t.Actions() {
		if a.Async {
			names = append(names, a.Name+" (async)")
		} else {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// renderSummary reports how every planned target ended.
func renderSummary(statuses []executor.TargetStatus) string {
	t := newTable("TARGET", "STATE", "DURATION", "ERROR")
	for _, s := range statuses {
		dur := ""
		if s.Duration > 0 {
			dur = s.Duration.Round(time.Millisecond).String()
		}
		t.Row(s.Name, s.State.String(), dur, s.Error)
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col != 1 || row >= len(statuses) {
			return cellStyle
		}
		switch statuses[row].State {
		case executor.Succeeded:
			return successStyle
		case executor.Failed:
			return failureStyle
		case executor.Skipped:
			return dimStyle
		default:
			return cellStyle
		}
	}).Render()
}
