// Package format describes the MRC2014 file format: the mapping between
// element types and file mode numbers, the machine-stamp byte-order
// markers, the fixed header field layout, and the named constants of the
// format.
//
// Everything in this package is a pure function or a static table. The
// header layout is modelled as an explicit, fixed-order list of field
// descriptors ([HeaderFields]) rather than via reflection, so the byte
// offset and width of every field is stated once and checked in tests.
package format
