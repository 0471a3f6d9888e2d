// Package prepro fills in the metadata a dataset needs from raw clip lists.
//
// Raw lists only name each clip and its template. Augment probes every
// encoded clip with ffprobe for its frame size, frame rate, and decoded frame
// count, maps the template onto a class id through a labels file, and returns
// complete metadata rows in input order. WriteTable replaces the output file
// atomically while holding an advisory lock.
package prepro
