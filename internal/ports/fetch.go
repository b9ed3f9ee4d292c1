package ports

import (
	"context"
	"io"
)

// FetcherPort downloads remote files. Transient transport failures are
// retried internally; a permanent failure on a required file is an
// error, while a missing optional file (signature, metadata) returns
// found=false without error.
type FetcherPort interface {
	Fetch(ctx context.Context, url string, optional bool) (data []byte, found bool, err error)
}

// DigestPort computes digests for signature verification.
type DigestPort interface {
	// Sign computes the named digest (md5, sha1, sha256, sha512) over
	// the reader's contents and returns it in hex form.
	Sign(algorithm string, reader io.Reader) (string, error)
}
