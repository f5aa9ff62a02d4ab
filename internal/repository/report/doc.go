// Package report persists packaging run reports.
//
// The FileRepository writes one YAML document per platform into the output
// directory, replacing it atomically so CI jobs never read a partial report.
package report
