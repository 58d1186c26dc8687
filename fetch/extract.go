package fetch

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var ErrIntegrity = errors.New("integrity check failed")

// Download fetches the tarball described by info, checks its integrity when
// one is recorded, and unpacks it into dest.
func Download(ctx context.Context, f FetcherInterface, info *ArtifactInfo, dest string) error {
	artifact, err := f.Fetch(ctx, info.URL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", info.URL, err)
	}
	defer func() { _ = artifact.Body.Close() }()

	body := io.Reader(artifact.Body)
	var verify func() error
	if info.Integrity != "" {
		h, want, err := parseIntegrity(info.Integrity)
		if err != nil {
			return err
		}
		body = io.TeeReader(body, h)
		verify = func() error {
			if !bytes.Equal(h.Sum(nil), want) {
				return fmt.Errorf("%w: %s", ErrIntegrity, info.Filename)
			}
			return nil
		}
	}

	if err := Extract(ctx, body, dest); err != nil {
		return err
	}
	if verify != nil {
		// Drain trailing padding so the digest covers the whole file.
		if _, err := io.Copy(io.Discard, body); err != nil {
			return err
		}
		return verify()
	}
	return nil
}

// Extract unpacks a gzipped npm tarball into dest. The leading directory that
// npm packs every file under ("package/") is stripped.
func Extract(ctx context.Context, r io.Reader, dest string) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer func() { _ = zr.Close() }()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tarball: %w", err)
		}

		rel := stripFirstComponent(hdr.Name)
		if rel == "" {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("tarball entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// npm tarballs carry no links or devices worth restoring.
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	// Some publishers pack files without the owner write bit.
	perm |= 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func stripFirstComponent(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}

// parseIntegrity reads an SRI string such as "sha512-<base64>". npm's legacy
// shasum arrives as "sha1-<hex>", so hex digests are accepted too.
func parseIntegrity(sri string) (hash.Hash, []byte, error) {
	// Multiple hashes may be listed; the first is enough.
	fields := strings.Fields(sri)
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("malformed integrity %q", sri)
	}
	sri = fields[0]
	algo, digest, ok := strings.Cut(sri, "-")
	if !ok {
		return nil, nil, fmt.Errorf("malformed integrity %q", sri)
	}

	var h hash.Hash
	switch algo {
	case "sha512":
		h = sha512.New()
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	default:
		return nil, nil, fmt.Errorf("unsupported integrity algorithm %q", algo)
	}

	if want, err := hex.DecodeString(digest); err == nil && len(want) == h.Size() {
		return h, want, nil
	}
	want, err := base64.StdEncoding.DecodeString(digest)
	if err != nil || len(want) != h.Size() {
		return nil, nil, fmt.Errorf("malformed integrity digest %q", sri)
	}
	return h, want, nil
}
