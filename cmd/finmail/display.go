package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/theme"
)

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, theme.Success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg prints a red X + message.
func ErrorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, theme.Failure.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Header prints a section header.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, theme.TitleStyle.Render(title))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// flagMarks renders message flags as a fixed-width marker column.
func flagMarks(f model.Flags) string {
	marks := []byte("   ")
	if !f.Seen {
		marks[0] = '*'
	}
	if f.Answered {
		marks[1] = 'R'
	}
	if f.Flagged {
		marks[2] = '!'
	}
	return string(marks)
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return "          "
	}
	return t.Local().Format("2006-01-02")
}

func sender(s model.MessageSummary) string {
	if s.FromName != "" {
		return s.FromName
	}
	return s.From
}

func printPage(w io.Writer, p model.Page) {
	if p.Error != "" {
		ErrorMsg(w, "%s", p.Error)
	}
	if p.Total == 0 {
		fmt.Fprintln(w, theme.Muted.Render("No messages."))
		return
	}

	for _, m := range p.Messages {
		clip := ""
		if m.HasAttachments {
			clip = "@"
		}
		fmt.Fprintf(w, "%8d %s %s  %-24s %1s %s\n",
			m.UID, flagMarks(m.Flags), shortDate(m.Date),
			decode.Truncate(sender(m), 24), clip, theme.Bold.Render(m.Subject))
		if m.Preview != "" {
			fmt.Fprintf(w, "%22s%s\n", "", theme.Muted.Render(m.Preview))
		}
	}
	fmt.Fprintln(w, theme.Muted.Render(fmt.Sprintf(
		"Page %d of %d · %d messages", p.Page, p.TotalPages, p.Total)))
}

func printDetail(w io.Writer, d model.MessageDetail) {
	Header(w, d.Subject)
	fmt.Fprintf(w, "From:  %s\n", model.Address{Email: d.From, Name: d.FromName})
	if len(d.To) > 0 {
		fmt.Fprintf(w, "To:    %s\n", joinAddresses(d.To))
	}
	if len(d.Cc) > 0 {
		fmt.Fprintf(w, "Cc:    %s\n", joinAddresses(d.Cc))
	}
	fmt.Fprintf(w, "Date:  %s\n", d.Date.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "UID:   %d\n", d.UID)

	for _, a := range d.Attachments {
		fmt.Fprintf(w, "Attachment: %s (%s, %d bytes, part %s)\n", a.Filename, a.Subtype, a.Size, a.Part)
	}
	fmt.Fprintln(w)

	body := d.Body
	if d.IsHTML {
		body = decode.StripHTML(body)
	}
	fmt.Fprintln(w, theme.DetailPanelStyle.Render(strings.TrimSpace(body)))
}

func joinAddresses(addrs []model.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

func printInsight(w io.Writer, in model.Insight) {
	line := theme.TypeStyle(in.Type).Render(fmt.Sprintf("%-22s", in.Type.Label()))
	if in.Amount != nil {
		line += " " + theme.Money.Render(in.Amount.Dollars())
	}
	if in.OldAmount != nil && in.NewAmount != nil {
		line += fmt.Sprintf(" %s → %s", in.OldAmount.Dollars(), in.NewAmount.Dollars())
	}
	if in.Percentage != nil {
		line += fmt.Sprintf(" %+.2f%%", *in.Percentage)
	}
	if in.PerformanceChange != nil {
		line += fmt.Sprintf(" performance %+.2f%%", *in.PerformanceChange)
	}
	if in.TotalValue != nil {
		line += " value " + in.TotalValue.Dollars()
	}
	if in.Date != nil {
		line += fmt.Sprintf(" %s %s", strings.ReplaceAll(in.Type.DateField(), "_", " "), in.Date)
	}
	if in.Status != "" {
		line += " " + theme.StatusStyle(in.Status).Render(string(in.Status))
	}
	fmt.Fprintln(w, line)

	meta := in.Source.EmailSubject
	if in.ID != "" {
		meta = in.ID + "  " + meta
	}
	if meta != "" {
		fmt.Fprintln(w, "  "+theme.Muted.Render(meta))
	}
}
