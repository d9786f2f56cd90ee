package format

// Kind classifies how a header field's bytes are interpreted.
type Kind int

const (
	KindInt32 Kind = iota
	KindFloat32
	KindVec3    // three consecutive float32 values
	KindString  // fixed-width ASCII, e.g. exttyp and the map ID
	KindStamp   // the 4-byte machine stamp, printed as hex
	KindBytes   // opaque reserved space
	KindLabels  // ten 80-character text labels
)

// Field describes one header field: its name, byte offset within the
// 1024-byte header, width in bytes and interpretation.
type Field struct {
	Name   string
	Offset int
	Width  int
	Kind   Kind
}

// HeaderFields lists every header field in declaration order. The table
// is the single source of truth for field offsets; the header codec and
// the field dump are both checked against it.
var HeaderFields = []Field{
	{"nx", 0, 4, KindInt32},
	{"ny", 4, 4, KindInt32},
	{"nz", 8, 4, KindInt32},
	{"mode", 12, 4, KindInt32},
	{"nxstart", 16, 4, KindInt32},
	{"nystart", 20, 4, KindInt32},
	{"nzstart", 24, 4, KindInt32},
	{"mx", 28, 4, KindInt32},
	{"my", 32, 4, KindInt32},
	{"mz", 36, 4, KindInt32},
	{"cella", 40, 12, KindVec3},
	{"cellb", 52, 12, KindVec3},
	{"mapc", 64, 4, KindInt32},
	{"mapr", 68, 4, KindInt32},
	{"maps", 72, 4, KindInt32},
	{"dmin", 76, 4, KindFloat32},
	{"dmax", 80, 4, KindFloat32},
	{"dmean", 84, 4, KindFloat32},
	{"ispg", 88, 4, KindInt32},
	{"nsymbt", 92, 4, KindInt32},
	{"extra1", 96, 8, KindBytes},
	{"exttyp", 104, 4, KindString},
	{"nversion", 108, 4, KindInt32},
	{"extra2", 112, 84, KindBytes},
	{"origin", 196, 12, KindVec3},
	{"map", 208, 4, KindString},
	{"machst", 212, 4, KindStamp},
	{"rms", 216, 4, KindFloat32},
	{"nlabl", 220, 4, KindInt32},
	{"label", 224, 800, KindLabels},
}
