// Package remotesync mirrors a local checkpoint directory to object storage.
//
// Pull runs once before a crawl starts so a fresh machine resumes where the
// last one stopped; Push runs after every checkpoint save. Objects are keyed
// as prefix/relative/path. Both directions overwrite and are safe to repeat.
//
// SQLite sidecar files (-wal, -shm, -journal) are never transferred; the
// checkpoint store folds its WAL into the main file after every save.
//
// A Syncer created without an ObjectStore is disabled and does nothing.
package remotesync
