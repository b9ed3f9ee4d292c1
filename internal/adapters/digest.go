package adapters

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// DigestAdapter computes hex digests for signature verification. The
// algorithm names mirror the extensions repositories publish signature
// files under (artifact.jar.sha256 and the like).
type DigestAdapter struct{}

func NewDigestAdapter() DigestAdapter {
	return DigestAdapter{}
}

func (a DigestAdapter) Sign(algorithm string, reader io.Reader) (string, error) {
	digest, err := newDigest(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(digest, reader); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to digest file contents").
			WithCause(err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// SignFile digests the file at path and writes the hex digest to a
// companion file named path.algorithm.
func (a DigestAdapter) SignFile(algorithm string, path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to open %s for signing", path)).
			WithCause(err)
	}
	defer in.Close()
	signature, err := a.Sign(algorithm, in)
	if err != nil {
		return "", err
	}
	signaturePath := path + "." + algorithm
	if err := os.WriteFile(signaturePath, []byte(signature), 0o644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write the signature file %s", signaturePath)).
			WithCause(err)
	}
	return signaturePath, nil
}

func newDigest(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("there is no support for the %s signature algorithm", algorithm))
	}
}
