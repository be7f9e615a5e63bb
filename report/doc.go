// Package report aggregates test results into a summary report.
//
// Generate is a pure function of its input: it copies the results, so it can be called
// repeatedly on a growing result log. A Report can be written as JSON, as canonical CBOR,
// or as a human-readable text summary.
package report
