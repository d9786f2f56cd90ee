// Package mrc reads, writes and validates MRC2014 format files, the fixed
// binary format used for electron microscopy images, volumes and volume
// stacks in structural biology.
//
// A file is a fixed 1024-byte header, an optional variable-length extended
// header and an n-dimensional numeric data block. The same in-memory model
// is presented whether the storage is a plain file ([Open], [New]), a gzip-
// or bzip2-compressed stream (selected by suffix or content sniffing), or a
// memory-mapped region ([Mmap], [NewMmap]).
//
//	f, err := mrc.New("out.mrc")
//	if err != nil { ... }
//	defer f.Close()
//	a, _ := mrc.NewFloat32([]int{10, 10}, values)
//	if err := f.SetData(a); err != nil { ... }
//
// Header synchronisation is explicit: SetData recomputes dimensions, mode
// and statistics, but data edited in place through the Array accessors is
// not observed, and the statistics fields stay stale until
// UpdateHeaderStats (or ResetHeaderStats) is called. This asymmetry keeps
// mutation cheap for very large blocks.
package mrc
