// Package connectors holds the record sources huli reads patient files from.
// Each connector implements driven.RecordSource for one kind of storage.
//
// Only the filesystem connector exists today; it lists, reads and watches
// one file per patient in the data directory.
package connectors
