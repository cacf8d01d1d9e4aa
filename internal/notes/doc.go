// Package notes adapts a markdown directory into the note corpus the
// retrieval engine consumes. A note's ID is its slash-separated path
// relative to the corpus root without the .md extension.
//
// Dir offers direct reads and writes for the serving surface, List for
// full-corpus rebuilds, and Watch, which turns filesystem events into
// save/delete calls on a Handler so external edits keep the index current.
package notes
