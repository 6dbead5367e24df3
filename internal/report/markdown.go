package report

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/swiftguard/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs a History as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs h in Markdown format.
func (w *MarkdownWriter) Write(h *History) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("swiftguard history")
	md.PlainText("")
	md.PlainTextf("Generated %s", h.GeneratedAt.Format(timeLayout))
	md.PlainText("")

	w.writeRecords(md, h.Records)
	w.writeLLMLogs(md, h.LLMLogs)
	w.writeFamilyCenterLogs(md, h.FamilyCenterLogs)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, records []Record) {
	md.H2("Pages")
	md.PlainText("")
	if len(records) == 0 {
		md.PlainText("No pages classified yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			truncateString(r.Key, 60),
			dash(string(r.Pipeline)),
			verdictCell(r.PageRecord),
			strconv.Itoa(r.Count),
			truncateString(dash(r.Reasoning), 80),
			timestamp(r.PageRecord),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Pipeline", "Verdict", "Visits", "Reasoning", "Updated"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeVerdictChart(md, records)
	w.writeAlert(md, records)
}

// writeVerdictChart writes a mermaid pie chart of verdict counts.
func (w *MarkdownWriter) writeVerdictChart(md *markdown.Markdown, records []Record) {
	counts := map[string]uint64{}
	for _, r := range records {
		counts[verdictLabel(r.PageRecord)]++
	}
	if len(counts) < 2 {
		return
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdicts"),
		piechart.WithShowData(true),
	)
	for _, l := range labels {
		chart.LabelAndIntValue(l, counts[l])
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, records []Record) {
	var scams, warnings int
	for _, r := range records {
		switch r.Verdict {
		case model.VerdictScam, model.VerdictHighRiskScam, model.VerdictFlashDriveScam:
			scams++
		case model.VerdictWarning:
			warnings++
		}
	}
	switch {
	case scams > 0:
		md.Cautionf("%d page(s) were classified as scams.", scams)
	case warnings > 0:
		md.Warningf("%d shopping page(s) carried warnings.", warnings)
	default:
		md.Tip("No scam pages recorded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLLMLogs(md *markdown.Markdown, logs []model.LLMLogEntry) {
	md.H2("Model responses")
	md.PlainText("")
	if len(logs) == 0 {
		md.PlainText("No model responses logged.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(logs))
	for i, l := range logs {
		rows[i] = []string{
			l.Timestamp.Format(timeLayout),
			l.Pipeline,
			truncateString(dash(l.URL), 50),
			truncateString(oneLine(l.Text), 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Time", "Pipeline", "URL", "Response"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFamilyCenterLogs(md *markdown.Markdown, logs []model.FamilyCenterLogEntry) {
	md.H2("Family Center")
	md.PlainText("")
	if len(logs) == 0 {
		md.PlainText("No chatbot messages screened.")
		md.PlainText("")
		return
	}

	var flagged int
	rows := make([][]string, len(logs))
	for i, l := range logs {
		mark := ""
		if l.Flagged {
			flagged++
			mark = "⚠️"
		}
		rows[i] = []string{
			l.Timestamp.Format(timeLayout),
			l.Platform,
			mark,
			truncateString(oneLine(l.Message), 60),
			truncateString(oneLine(l.Analysis), 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Time", "Platform", "Flagged", "Message", "Analysis"},
		Rows:   rows,
	})
	md.PlainText("")

	if flagged > 0 {
		md.Importantf("%d message(s) showed signs of distress.", flagged)
		md.PlainText("")
	}
}

// verdictLabel names a record in the pie chart.
func verdictLabel(r model.PageRecord) string {
	if r.Status == model.StatusProcessing {
		return "Processing"
	}
	if r.Verdict == "" {
		return "None"
	}
	return string(r.Verdict)
}

func verdictCell(r model.PageRecord) string {
	if r.News != nil && r.News.Verdict != model.NewsVerdictNone {
		return verdictLabel(r) + " (" + string(r.News.Verdict) + ")"
	}
	return verdictLabel(r)
}

func timestamp(r model.PageRecord) string {
	if r.Timestamp.IsZero() {
		return "-"
	}
	return r.Timestamp.Format(timeLayout)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// oneLine keeps table cells on one row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateString cuts s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
