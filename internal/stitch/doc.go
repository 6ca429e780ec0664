// Package stitch builds a full-page image of a scrollable surface whose
// viewport only shows part of the content at a time.
//
// A Stitcher scrolls the surface by a third of the usable viewport, captures
// it, and locates a comparison band from the new capture inside both the
// previously stitched segment and the new capture. The two positions tell it
// where old content ends and new content starts. Stitching stops when two
// consecutive comparison bands are byte-identical (nothing scrolled) or when
// the configured swipe limit is reached. A band that cannot be located with
// enough confidence aborts the run with a *TemplateMismatchError carrying the
// images involved.
//
// The top and bottom CutFraction of every capture are treated as device
// chrome. Only the first capture contributes rows above the crop window and
// only the last contributes rows below it.
package stitch
