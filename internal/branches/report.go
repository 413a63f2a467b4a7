package branches

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

const (
	tableHeaderSelectedConstant    = "SEL"
	tableHeaderNameConstant        = "BRANCH"
	tableHeaderStatusConstant      = "STATUS"
	tableHeaderInfoConstant        = "INFO"
	tableSelectedMarkerConstant    = "[x]"
	tableUnselectedMarkerConstant  = "[ ]"
	tableColumnGapConstant         = "  "
	tableNameColumnLimitConstant   = 60
	tableTruncationTailConstant    = "…"
	jsonIndentConstant             = "  "
	unsupportedReportFormatMessage = "unsupported output format %q (expected table, yaml, or json)"
	reportWriteErrorTemplate       = "unable to write report: %w"
)

// ReportFormat selects how rows are rendered by the list command.
type ReportFormat string

// Report format enumerations.
const (
	ReportFormatTable ReportFormat = ReportFormat("table")
	ReportFormatYAML  ReportFormat = ReportFormat("yaml")
	ReportFormatJSON  ReportFormat = ReportFormat("json")
)

// ParseReportFormat converts user input into a ReportFormat.
func ParseReportFormat(value string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", ReportFormatTable:
		return ReportFormatTable, nil
	case ReportFormatYAML:
		return ReportFormatYAML, nil
	case ReportFormatJSON:
		return ReportFormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedReportFormatMessage, value)
	}
}

// BranchReport is the serialized form of a list run.
type BranchReport struct {
	Repository    string `json:"repository" yaml:"repository"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	Branches      []Row  `json:"branches" yaml:"branches"`
}

// RenderReport writes the report in the requested format.
func RenderReport(writer io.Writer, report BranchReport, format ReportFormat) error {
	var renderError error
	switch format {
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		renderError = encoder.Encode(report)
		if renderError == nil {
			renderError = encoder.Close()
		}
	case ReportFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		renderError = encoder.Encode(report)
	default:
		_, renderError = io.WriteString(writer, renderTable(report.Branches))
	}
	if renderError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, renderError)
	}
	return nil
}

func renderTable(rows []Row) string {
	nameWidth := runewidth.StringWidth(tableHeaderNameConstant)
	statusWidth := runewidth.StringWidth(tableHeaderStatusConstant)
	for _, row := range rows {
		nameWidth = max(nameWidth, min(runewidth.StringWidth(row.Name), tableNameColumnLimitConstant))
		statusWidth = max(statusWidth, runewidth.StringWidth(row.StatusLabel))
	}

	var builder strings.Builder
	appendRow := func(marker string, name string, status string, info string) {
		builder.WriteString(marker)
		builder.WriteString(tableColumnGapConstant)
		builder.WriteString(runewidth.FillRight(runewidth.Truncate(name, nameWidth, tableTruncationTailConstant), nameWidth))
		builder.WriteString(tableColumnGapConstant)
		builder.WriteString(runewidth.FillRight(status, statusWidth))
		builder.WriteString(tableColumnGapConstant)
		builder.WriteString(info)
		builder.WriteString("\n")
	}

	appendRow(runewidth.FillRight(tableHeaderSelectedConstant, len(tableSelectedMarkerConstant)), tableHeaderNameConstant, tableHeaderStatusConstant, tableHeaderInfoConstant)
	for _, row := range rows {
		marker := tableUnselectedMarkerConstant
		if row.Selected {
			marker = tableSelectedMarkerConstant
		}
		appendRow(marker, row.Name, row.StatusLabel, row.InfoSummary)
	}
	return builder.String()
}
