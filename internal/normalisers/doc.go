// Package normalisers holds the record parsers that decode raw record bytes
// into a domain.PatientRecord. Each implements driven.RecordParser.
//
// The patient normaliser accepts JSON and YAML record files and normalises
// loosely typed source fields such as numeric ids or comma separated lists.
package normalisers
