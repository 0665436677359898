// Package storage writes archive files.
//
// Every write goes through a temporary file in the destination directory and
// an atomic rename, so an interrupted or failed download never leaves a
// partial file and never clobbers an earlier good copy. Written files carry
// the report's creation time as their atime and mtime.
package storage
