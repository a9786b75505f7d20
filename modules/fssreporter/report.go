// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package fssreporter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stellar-survey/edsst/modules/core"
)

// reportWidth is the width of the box rules, in cells.
const reportWidth = 84

type styles struct {
	frame      lipgloss.Style
	valuable   lipgloss.Style
	biological lipgloss.Style
	geological lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		frame:      renderer.NewStyle().Foreground(lipgloss.Color("#00ffff")),
		valuable:   renderer.NewStyle().Foreground(lipgloss.Color("#6060ff")),
		biological: renderer.NewStyle().Foreground(lipgloss.Color("#00ff00")),
		geological: renderer.NewStyle().Foreground(lipgloss.Color("#ffff00")),
	}
}

type reportBuilder struct {
	lines  []string
	styles styles
}

func (r *reportBuilder) rule(left string) {
	r.lines = append(r.lines, r.styles.frame.Render(left+strings.Repeat("═", reportWidth-1)))
}

func (r *reportBuilder) section() {
	r.lines = append(r.lines, r.styles.frame.Render("╠══"))
}

// row writes one line inside the box, truncated to the box width.
func (r *reportBuilder) row(style lipgloss.Style, text string) {
	line := ansi.Truncate("║ "+text, reportWidth, "…")
	r.lines = append(r.lines, style.Render(line))
}

// table writes rows whose columns are padded to a common display width.
func (r *reportBuilder) table(style lipgloss.Style, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], ansi.StringWidth(cell))
		}
	}
	for _, row := range rows {
		var builder strings.Builder
		builder.WriteString("    ")
		for i, cell := range row {
			builder.WriteString(cell)
			if i < len(row)-1 {
				builder.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(cell)+2))
			}
		}
		r.row(style, builder.String())
	}
}

// Report renders the scan summary of core's current system.
func (m *Module) Report() string {
	system := m.core.CurrentSystem()
	bodies := &system.Bodies
	report := &reportBuilder{styles: m.styles}

	report.rule("╔")
	report.row(m.styles.frame, fmt.Sprintf("Full system scan of %s complete!", system.Name))
	report.rule("╠")
	report.table(m.styles.frame, [][]string{
		{"Total stars:", fmt.Sprint(bodies.Count(core.Star))},
		{"Total planets:", fmt.Sprint(bodies.Count(core.Planet))},
		{"First discoveries:", fmt.Sprint(bodies.Count(core.FirstDiscoveryStar, core.FirstDiscoveryPlanet))},
	})

	valuables := bodies.With(core.Terraformable, core.EarthLikeWorld, core.WaterWorld, core.AmmoniaWorld)
	if len(valuables) > 0 {
		report.section()
		report.row(m.styles.valuable, fmt.Sprintf("Valuable planets: %d", len(valuables)))
		var rows [][]string
		for _, body := range valuables {
			kind := AbbreviatePlanetClass(body.String("PlanetClass"))
			if body.String("TerraformState") == "Terraformable" {
				kind += " + Terraformable"
			}
			rows = append(rows, []string{relativeName(body, system.Name), "(" + kind + ")"})
		}
		report.table(m.styles.valuable, rows)
	}

	biologicals := bodies.With(core.Biological)
	if total := signalTotal(biologicals, core.SignalBiological); total > 0 {
		report.section()
		report.row(m.styles.biological, fmt.Sprintf("Biological signatures: %d / %d", len(biologicals), total))
		var rows [][]string
		for _, body := range biologicals {
			rows = append(rows, []string{
				relativeName(body, system.Name),
				fmt.Sprintf("(%d)", body.SignalCount(core.SignalBiological)),
				"Type: " + AbbreviatePlanetClass(body.String("PlanetClass")),
				fmt.Sprintf("Temp: ~%dK", int(body.Float("SurfaceTemperature"))),
				"Atm: " + orUnknown(body.String("AtmosphereType")),
			})
		}
		report.table(m.styles.biological, rows)
	}

	geologicals := bodies.With(core.Geological)
	if total := signalTotal(geologicals, core.SignalGeological); total > 0 {
		report.section()
		report.row(m.styles.geological, fmt.Sprintf("Geological signatures: %d / %d", len(geologicals), total))
		var rows [][]string
		for _, body := range geologicals {
			rows = append(rows, []string{
				relativeName(body, system.Name),
				fmt.Sprintf("(%d)", body.SignalCount(core.SignalGeological)),
				"Volcanism: " + orUnknown(body.String("Volcanism")),
			})
		}
		report.table(m.styles.geological, rows)
	}

	report.rule("╚")
	return strings.Join(report.lines, "\n")
}

func signalTotal(bodies []core.Body, signalType string) int {
	total := 0
	for _, body := range bodies {
		total += body.SignalCount(signalType)
	}
	return total
}

// relativeName strips the system name from a body name: "Sol 3" in
// Sol becomes "3".
func relativeName(body core.Body, systemName string) string {
	name := strings.TrimSpace(strings.TrimPrefix(body.String("BodyName"), systemName))
	if name == "" {
		return body.String("BodyName")
	}
	return name
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// AbbreviatePlanetClass shortens journal planet classes for tables.
func AbbreviatePlanetClass(planetClass string) string {
	switch planetClass {
	case "Earthlike body":
		return "ELW"
	case "Water world":
		return "WW"
	case "Ammonia world":
		return "AW"
	case "High metal content body":
		return "HMC"
	case "Metal rich body":
		return "MR"
	case "Rocky body":
		return "Rocky"
	case "Rocky ice body":
		return "Rocky ice"
	case "Icy body":
		return "Icy"
	case "Water giant":
		return "Water giant"
	case "Helium rich gas giant":
		return "He-rich GG"
	case "Helium gas giant":
		return "He GG"
	case "Gas giant with water based life":
		return "GG water life"
	case "Gas giant with ammonia based life":
		return "GG ammonia life"
	}
	if class, ok := strings.CutPrefix(planetClass, "Sudarsky class "); ok {
		return "GG " + strings.TrimSuffix(class, " gas giant")
	}
	return planetClass
}
