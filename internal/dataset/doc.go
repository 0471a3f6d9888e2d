// Package dataset composes metadata, frame sampling, frame sources, and
// augmentation into an indexable collection of (Video, Label) samples.
//
// A Dataset is immutable after New returns: the filtered metadata table, the
// class lookups, the sampling policy, and the augmentation pipeline are all
// fixed, so Item may be called from many goroutines at once. Randomness comes
// from the *rand.Rand each caller passes in; loader workers own one each.
//
// Subsetting is controlled by Keep. A fraction keeps the first
// round(n*fraction) rows of every class (round half to even), a count keeps
// the first rows of the table regardless of class.
package dataset
