package mrc

// Future is the pending result of an asynchronous open. It is safe to
// poll Done from any goroutine; Wait may be called once or many times and
// always returns the same result.
type Future struct {
	done chan struct{}
	file *File
	err  error
}

// OpenAsync starts opening the file on a background goroutine and returns
// immediately. Decompression and data reading proceed while the caller
// does other work; collect the result with Wait.
func OpenAsync(path string, opts ...Option) *Future {
	fut := &Future{done: make(chan struct{})}
	go func() {
		fut.file, fut.err = Open(path, opts...)
		close(fut.done)
	}()
	return fut
}

// Done reports whether the open has finished, without blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the open finishes and returns its result.
func (f *Future) Wait() (*File, error) {
	<-f.done
	return f.file, f.err
}
