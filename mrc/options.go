package mrc

// BackendKind selects the storage backend explicitly instead of relying
// on filename suffix or content sniffing.
type BackendKind int

const (
	AutoBackend BackendKind = iota
	PlainBackend
	GzipBackend
	Bzip2Backend
)

// Option configures an open or create call.
type Option func(*openOptions)

type openOptions struct {
	readWrite   bool
	permissive  bool
	overwrite   bool
	keepFloat16 bool
	backend     BackendKind
	fill        *float64
}

func applyOptions(opts []Option) *openOptions {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ReadWrite opens the file for both reading and writing. The default is
// read-only.
func ReadWrite() Option {
	return func(o *openOptions) { o.readWrite = true }
}

// Permissive downgrades structural open errors (bad map ID, unrecognised
// machine stamp, unknown mode, declared size exceeding the stream) to
// accumulated diagnostics, leaving the data block unset when it cannot be
// read safely. Inspect the result with Warnings.
func Permissive() Option {
	return func(o *openOptions) { o.permissive = true }
}

// Overwrite lets a create call replace an existing file instead of
// failing with ErrExists.
func Overwrite() Option {
	return func(o *openOptions) { o.overwrite = true }
}

// KeepFloat16 stores float16 data natively as mode 12 instead of widening
// it to 32-bit floats (mode 2).
func KeepFloat16() Option {
	return func(o *openOptions) { o.keepFloat16 = true }
}

// WithBackend forces a specific storage backend.
func WithBackend(kind BackendKind) Option {
	return func(o *openOptions) { o.backend = kind }
}

// WithFill initialises every element of a NewMmap file with the given
// value. Without it the data block is left as the platform provides it
// (zeros), which keeps creation of very large files cheap.
func WithFill(value float64) Option {
	return func(o *openOptions) { o.fill = &value }
}
