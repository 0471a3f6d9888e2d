// Package meta describes video clips and reads the metadata tables that list them.
//
// A Table is an ordered list of VideoMeta rows. Order is preserved exactly as
// it appears in the source file because subsetting takes rows from the head of
// each class. Readers accept the two column spellings found in
// Something-Something metadata (label/template, lid/template_id) and fail with
// vberr.ErrConfiguration when a required field is missing.
package meta
