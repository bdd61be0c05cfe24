// Package report summarizes the match log.
//
// Summarize turns match records into a Summary: total mentions, the
// domains and name variations they were found under, and the sentiment
// distribution. Writers render a Summary:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with a mermaid pie chart
//   - JSONWriter: structured JSON for other tools
//   - CSVWriter: one row per mention
//   - XLSXWriter: a workbook with summary and mention sheets
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
