package util

import "sync"

// RecvBufSize is the size of one receive-loop read.  A single read is
// decoded as a single server frame, so it must hold the largest frame
// the server sends (a full USERS list).
const RecvBufSize = 4096

// BufPool provides reusable receive buffers so reconnect cycles do not
// allocate a fresh buffer per connection.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, RecvBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
