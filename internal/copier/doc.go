// Package copier places files into an extension-partitioned destination tree.
//
// Every file lands at <dest>/<ext>/<relative dirs>/<name>. When the target
// already exists the SHA-256 digests of both sides decide the outcome:
// identical content is skipped as a duplicate, different content is written
// next to it under a new name. The existing file is never overwritten.
//
// Writes go to a temporary file in the target directory, are synced to
// stable storage and then renamed into place, so a file is only reported as
// copied once its content is durable.
//
// A Copier is safe for concurrent use. Decisions about one destination
// directory are serialized so two files can never claim the same name.
package copier
