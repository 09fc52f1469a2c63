package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/stwalsh4118/bizsearch/internal/models"
)

type printer interface {
	Businesses(source string, businesses []models.Business) error
}

// jsonPrinter writes the same {source, data} shape the HTTP API returns.
type jsonPrinter struct {
	w io.Writer
}

func (p jsonPrinter) Businesses(source string, businesses []models.Business) error {
	if businesses == nil {
		businesses = []models.Business{}
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Source string            `json:"source"`
		Data   []models.Business `json:"data"`
	}{source, businesses})
}

type tablePrinter struct {
	w io.Writer
}

func (p tablePrinter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(p.w)
	t.SetTitle(title)
	return t
}

func (p tablePrinter) Businesses(source string, businesses []models.Business) error {
	if len(businesses) == 0 {
		_, err := fmt.Fprintf(p.w, "no businesses found (source: %s)\n", source)
		return err
	}

	summary := p.newTable(fmt.Sprintf("%d result(s) from %s", len(businesses), source))
	summary.AppendHeader(table.Row{"Filing #", "Name", "Status", "Filed", "State", "Registered Agent"})
	for _, b := range businesses {
		summary.AppendRow(table.Row{b.FilingNumber, b.Name, b.Status, formatDate(b.FilingDate), b.StateOfFormation, b.RegisteredAgentName})
	}
	summary.Render()

	for _, b := range businesses {
		if len(b.Officers) > 0 {
			officers := p.newTable(b.Name + ": officers")
			officers.AppendHeader(table.Row{"Title", "Name", "Address"})
			for _, o := range b.Officers {
				officers.AppendRow(table.Row{o.Title, o.Name, oneLine(o.Address)})
			}
			officers.Render()
		}
		if len(b.FilingHistory) > 0 {
			filings := p.newTable(b.Name + ": filing history")
			filings.AppendHeader(table.Row{"Filed", "Type", "Document"})
			filings.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, WidthMax: 80, WidthMaxEnforcer: text.Trim},
			})
			for _, f := range b.FilingHistory {
				filings.AppendRow(table.Row{formatDate(f.FilingDate), f.FilingType, f.DocumentURL})
			}
			filings.Render()
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", ", ")
}
