// Package storage persists detection results.
//
// Each detector kind gets its own append-only table so retention and
// statistics stay independent per detector. The SQLite backend is the
// production store; the memory backend serves tests.
package storage
