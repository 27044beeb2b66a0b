// Package sqlite is the durable store: records, drafts and scheduler state
// share one modernc.org/sqlite database (no cgo) at
// $XDG_DATA_HOME/herbtrace/queue.db.
//
// The database runs in WAL mode with synchronous=FULL, so a record is on disk
// before Append returns. Each record row carries its canonical JSON entry and
// a state column mirroring it for indexed queries. A row whose entry cannot
// be decoded is skipped and logged.
//
// Schema changes are numbered .up.sql/.down.sql pairs under migrations/.
package sqlite
