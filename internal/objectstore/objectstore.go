// Package objectstore publishes finished output files under an output root,
// either a local directory or an s3://bucket/prefix location.
//
// Keys are slash-separated and relative to the root. Files are produced in a
// local staging area first and published with Put.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Store is the output side of the job.
type Store interface {
	// RemoveAll deletes every object under prefix. Missing prefixes are not
	// an error.
	RemoveAll(ctx context.Context, prefix string) error
	// Put publishes the local file at localPath under key.
	Put(ctx context.Context, key, localPath string) error
	// URL renders key as a human-readable location for logs and manifests.
	URL(key string) string
}

// S3Options carries explicit credentials and addressing for S3 output.
// Nothing is read from or exported to the process environment here.
type S3Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the S3 endpoint (S3-compatible stores).
	Endpoint string
}

// Open returns the Store for root. Roots with an s3, s3a or s3n scheme
// select S3; anything else is a local directory.
func Open(root string, opt S3Options) (Store, error) {
	bucket, prefix, ok, err := ParseS3URL(root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewLocal(root), nil
	}
	return NewS3(bucket, prefix, opt)
}

// ParseS3URL splits s3://bucket/prefix. ok is false when root is not an S3
// URL.
func ParseS3URL(root string) (bucket, prefix string, ok bool, err error) {
	i := strings.Index(root, "://")
	if i < 0 {
		return "", "", false, nil
	}
	switch strings.ToLower(root[:i]) {
	case "s3", "s3a", "s3n":
	default:
		return "", "", false, nil
	}
	u, err := url.Parse(root)
	if err != nil {
		return "", "", false, fmt.Errorf("output root %q: %w", root, err)
	}
	if u.Host == "" {
		return "", "", false, fmt.Errorf("output root %q: missing bucket", root)
	}
	return u.Host, strings.Trim(u.Path, "/"), true, nil
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
