package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/reconstruct"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type printer struct {
	w      io.Writer
	format string

	ok, bad, title *color.Color
}

func newPrinter(w io.Writer, format string, colour bool) *printer {
	p := &printer{
		w:      w,
		format: format,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		title:  color.New(color.Bold),
	}
	if !colour {
		p.ok.DisableColor()
		p.bad.DisableColor()
		p.title.DisableColor()
	}
	return p
}

// print writes v as JSON or YAML, or hands over to table for the table format.
func (p *printer) print(v any, table func()) error {
	switch p.format {
	case outputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(p.w, v)
	default:
		table()
		return nil
	}
}

// writeYAML goes through JSON so keys and custom marshalers match the REST output.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err = json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func (p *printer) heading(s string) {
	fmt.Fprintln(p.w, p.title.Sprint(s))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) table(header []string, rows [][]string) {
	t := tablewriter.NewWriter(p.w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.AppendBulk(rows)
	t.Render()
}

// fields renders key/value pairs, skipping empty values.
func (p *printer) fields(rows [][]string) {
	t := tablewriter.NewWriter(p.w)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		if row[1] != "" {
			t.Append(row)
		}
	}
	t.Render()
}

func (p *printer) status(success bool) string {
	if success {
		return p.ok.Sprint("success")
	}
	return p.bad.Sprint("failed")
}

func (p *printer) check(s movement.CheckState) string {
	switch s {
	case movement.CheckPassed:
		return p.ok.Sprint(s.String())
	case movement.CheckFailed:
		return p.bad.Sprint(s.String())
	default:
		return s.String()
	}
}

func (p *printer) result(result *movement.SimulationResult) {
	views, err := reconstruct.BuildViews(result)
	gasUsed, gasCost := result.GasUsed, ""
	if err == nil {
		gasUsed, gasCost = views.GasUsed, views.GasCost+" MOVE"
	}

	p.fields([][]string{
		{"Status", p.status(result.Success)},
		{"VM status", result.VMStatus},
		{"Gas used", gasUsed},
		{"Gas unit price", result.GasUnitPrice},
		{"Max gas amount", result.MaxGasAmount},
		{"Gas cost", gasCost},
		{"Sender", result.Sender},
		{"Sequence number", result.SequenceNumber},
		{"Hash", result.Hash},
		{"History id", result.ID},
		{"Error", result.Error},
	})
	if result.SimulationNote != "" {
		p.line("%s", result.SimulationNote)
	}
	if d := result.Validation; d != nil {
		p.heading("Diagnostics")
		p.fields([][]string{
			{"Payload valid", strconv.FormatBool(d.PayloadValid)},
			{"Function exists", p.check(d.FunctionExists)},
			{"Estimated gas price", formatUint(d.EstimatedGasPrice)},
			{"Prioritized gas price", formatUint(d.PrioritizedGasPrice)},
			{"Balance", withUnit(d.BalanceMove, "MOVE")},
			{"Estimated max gas cost", withUnit(d.EstimatedMaxGasCost, "MOVE")},
		})
	}
	if err != nil {
		return
	}
	if len(views.BalanceChanges) > 0 {
		p.heading("Balance changes")
		rows := make([][]string, 0, len(views.BalanceChanges))
		for _, c := range views.BalanceChanges {
			rows = append(rows, []string{c.Address, c.CoinSymbol, c.Before, c.After, c.Change, string(c.Direction)})
		}
		p.table([]string{"Address", "Coin", "Before", "After", "Change", "Direction"}, rows)
	}
	if views.GasBreakdown != nil {
		p.heading("Gas breakdown (estimated)")
		var rows [][]string
		flattenGas(views.GasBreakdown, 0, &rows)
		p.table([]string{"Function", "Gas", "Share"}, rows)
	}
}

func flattenGas(node *reconstruct.GasBreakdown, depth int, rows *[][]string) {
	*rows = append(*rows, []string{
		strings.Repeat("  ", depth) + node.Function,
		reconstruct.FormatGas(node.GasUsed),
		strconv.FormatFloat(node.Percentage, 'f', 1, 64) + "%",
	})
	for _, child := range node.Children {
		flattenGas(child, depth+1, rows)
	}
}

func formatUint(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func withUnit(v, unit string) string {
	if v == "" {
		return ""
	}
	return v + " " + unit
}
