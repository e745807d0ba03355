// Package renamer orchestrates one batch: list the directory, describe each
// eligible image, turn the description into a filename token, pick a free
// destination and either rename or just report it.
//
// Every eligible file ends in exactly one Plan, either renamed (applied or
// planned) or failed, and every filtered entry in a skipped Plan. A failure
// on one file never stops the batch; only a missing directory does, before
// any model call. Destinations are unique within a run in both modes because
// the naming.Resolver remembers what it handed out.
//
// Files are processed one at a time by default. With Options.Workers > 1 a
// bounded errgroup describes several files at once; destination resolution
// and the rename still happen inside the resolver's single critical section,
// and results are accumulated under one mutex.
package renamer
