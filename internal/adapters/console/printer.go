package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
	"github.com/olekukonko/tablewriter"
)

// Printer renders reports as text tables. It is a ReportSink.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Publish prints r.
func (p *Printer) Publish(_ context.Context, r domain.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.w, "=== %s report %s (%s) at %s, channel %d, dropped %d ===\n",
		r.Kind, shortID(r.ID), r.Reason, r.CreatedAt.Format("15:04:05"), r.CurrentChannel, r.Dropped); err != nil {
		return err
	}

	switch r.Kind {
	case domain.ReportFull:
		p.full(r)
	default:
		p.summary(r)
	}
	return nil
}

func (p *Printer) summary(r domain.Report) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{"Channel", "Total", "Mgmt", "Control", "Data", "Reserved"})
	for _, s := range channels(r) {
		table.Append([]string{
			strconv.Itoa(s.Channel), u(s.Total),
			u(s.Types.Management), u(s.Types.Control), u(s.Types.Data), u(s.Types.Reserved),
		})
	}
	a := r.Aggregate()
	table.SetFooter([]string{"all", u(a.Total),
		u(a.Types.Management), u(a.Types.Control), u(a.Types.Data), u(a.Types.Reserved)})
	table.Render()
}

func (p *Printer) full(r domain.Report) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{
		"Channel", "Total", "Mgmt", "Control", "Data", "Reserved",
		"Len12", "Len60", "Len128", "Other",
		"Assoc", "Probe", "Beacon", "Disassoc",
		"AMPDU", "HT",
	})
	row := func(label string, s domain.ChannelStats) []string {
		return []string{
			label, u(s.Total),
			u(s.Types.Management), u(s.Types.Control), u(s.Types.Data), u(s.Types.Reserved),
			u(s.Lengths.Len12), u(s.Lengths.Len60), u(s.Lengths.Len128), u(s.Lengths.Other),
			u(s.Subtypes.Assoc), u(s.Subtypes.Probe), u(s.Subtypes.Beacon), u(s.Subtypes.Disassoc),
			u(s.Radio.AMPDU), u(s.Radio.HT),
		}
	}
	for _, s := range channels(r) {
		table.Append(row(strconv.Itoa(s.Channel), s))
	}
	table.SetFooter(row("all", r.Aggregate()))
	table.Render()

	a := r.Aggregate().Anomalies
	anomalies := tablewriter.NewWriter(p.w)
	anomalies.SetHeader([]string{"Anomaly", "Count"})
	anomalies.AppendBulk([][]string{
		{"too short", u(a.TooShort)},
		{"bad protocol version", u(a.BadProtocolVersion)},
		{"bad element id", u(a.BadElementID)},
		{"truncated element", u(a.TruncatedElement)},
		{"oversized element", u(a.OversizedElement)},
		{"recovered", u(a.Recovered)},
	})
	anomalies.Render()

	ssids := tablewriter.NewWriter(p.w)
	ssids.SetHeader([]string{"Channel", "SSIDs"})
	ssids.SetAutoWrapText(false)
	for _, s := range channels(r) {
		if len(s.SSIDs) > 0 {
			ssids.Append([]string{strconv.Itoa(s.Channel), strings.Join(s.SSIDs, ", ")})
		}
	}
	if ssids.NumLines() > 0 {
		ssids.Render()
	}
}

// channels returns the per-channel slots of r, without the aggregate.
func channels(r domain.Report) []domain.ChannelStats {
	if len(r.Channels) <= 1 {
		return nil
	}
	return r.Channels[1:]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func u(v uint64) string {
	return strconv.FormatUint(v, 10)
}
