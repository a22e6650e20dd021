package engine

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// HashFile computes the BLAKE3 hash of the file at path, returning the hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyOutput re-reads a published output and compares its BLAKE3 digest
// to the digest computed while streaming. A mismatch means the bytes on
// disk are not the bytes that were written.
func VerifyOutput(path, streamDigest string) error {
	diskDigest, err := HashFile(path)
	if err != nil {
		return err
	}
	if diskDigest != streamDigest {
		return fmt.Errorf("digest mismatch for %s: stream %s, disk %s", path, streamDigest, diskDigest)
	}
	return nil
}
