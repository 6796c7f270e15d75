package objectstore

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// deleteBatch is the S3 DeleteObjects limit.
const deleteBatch = 1000

// S3 stores objects in a bucket under a key prefix.
type S3 struct {
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewS3 builds an S3 store from explicit options. Empty credentials fall
// back to the SDK's default chain (instance role, shared config).
func NewS3(bucket, prefix string, opt S3Options) (*S3, error) {
	cfg := &aws.Config{}
	if opt.Region != "" {
		cfg.Region = aws.String(opt.Region)
	}
	if opt.Endpoint != "" {
		cfg.Endpoint = aws.String(opt.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opt.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opt.AccessKeyID, opt.SecretAccessKey, opt.SessionToken)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	client := s3.New(sess)
	return newS3WithClient(client, s3manager.NewUploaderWithClient(client), bucket, prefix), nil
}

func newS3WithClient(client s3iface.S3API, up s3manageriface.UploaderAPI, bucket, prefix string) *S3 {
	return &S3{client: client, uploader: up, bucket: bucket, prefix: join(prefix)}
}

func (s *S3) key(k string) string { return join(s.prefix, k) }

// RemoveAll lists everything under prefix and deletes it in batches.
func (s *S3) RemoveAll(ctx context.Context, prefix string) error {
	p := s.key(prefix)
	if p == "" {
		return fmt.Errorf("s3 store: refusing to remove bucket root s3://%s", s.bucket)
	}
	p += "/"

	var batch []*s3.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, p, err)
		}
		if out != nil && len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete s3://%s/%s: %d failures, first %s: %s",
				s.bucket, aws.StringValue(e.Key), len(out.Errors), aws.StringValue(e.Code), aws.StringValue(e.Message))
		}
		batch = batch[:0]
		return nil
	}

	var ferr error
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(p),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			batch = append(batch, &s3.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatch {
				if ferr = flush(); ferr != nil {
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("list s3://%s/%s: %w", s.bucket, p, err)
	}
	if ferr != nil {
		return ferr
	}
	return flush()
}

// Put uploads localPath and removes it once the upload succeeded.
func (s *S3) Put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", s.URL(key), err)
	}
	f.Close()
	return os.Remove(localPath)
}

// URL returns the s3:// location of key.
func (s *S3) URL(key string) string { return "s3://" + s.bucket + "/" + s.key(key) }
