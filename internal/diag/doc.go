// Package diag defines the diagnostic model shared by grammar construction,
// compilation and the CLI.
//
// A Diagnostic carries a Severity, a numeric Code with a stable string form,
// a short message and the declaration site (source.Pos) of the offending
// symbol, rule or priority. Producers emit through a Reporter; BagReporter
// collects into a Bag which supports sorting, deduplication and rendering
// one line per entry.
//
// Code ranges:
//
//   - 1000–1999 GRM: symbol and rule declarations, sealing checks.
//   - 2000–2999 PRI: terminal priorities.
//   - 3000–3999 LEX: lexer registration.
//   - 4000–4999 ENC: attribute encoding.
//   - 5000–5999 SYN: syntax tree conversion.
//   - 6000–6999 CFG: configuration files.
//
// Package diag performs no IO.
package diag
