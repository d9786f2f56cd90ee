package format

// Format identification.
const (
	// MapID is the magic identifier found at offset MapIDOffset in every
	// valid MRC file.
	MapID = "MAP "

	// MapIDOffset is the byte offset of the map ID string within the header.
	MapIDOffset = 208

	// HeaderSize is the fixed size of the MRC header in bytes.
	HeaderSize = 1024

	// VersionMRC2014 is the nversion value for the MRC2014 format, version 0.
	VersionMRC2014 = 20140
)

// Space group values used to distinguish the data interpretation.
const (
	ImageStackSpaceGroup  = 0
	VolumeSpaceGroup      = 1
	VolumeStackSpaceGroup = 401

	// VolumeStackSpaceGroupMax is the upper bound of the volume-stack
	// space group range.
	VolumeStackSpaceGroupMax = 630
)

// SpaceGroupIsVolumeStack reports whether ispg falls in the volume-stack
// range 401-630.
func SpaceGroupIsVolumeStack(ispg int32) bool {
	return ispg >= VolumeStackSpaceGroup && ispg <= VolumeStackSpaceGroupMax
}

// Header label storage.
const (
	LabelCount = 10
	LabelSize  = 80
)

// Known extended header type tags and their per-section record sizes.
// A zero record size means the layout carries no fixed per-section records.
var ExtTypeRecordSizes = map[string]int{
	"CCP4": 0,
	"MRCO": 0,
	"SERI": 0,
	"AGAR": 0,
	"FEI1": 768,
	"FEI2": 888,
	"HDF5": 0,
}

// KnownExtType reports whether tag names a recognised extended header
// layout.
func KnownExtType(tag string) bool {
	_, ok := ExtTypeRecordSizes[tag]
	return ok
}
