package jobs

import (
	"context"
	"fmt"
	"io"

	"slidecast/common"
)

// S3Uploader stores exports under a bucket prefix
type S3Uploader struct {
	S3     *common.S3
	Bucket string
	Prefix string
}

// Upload puts the object and returns its s3:// location
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	k := u.Prefix + key
	loc := common.Location(u.Bucket, k)
	if err := u.S3.Put(ctx, u.Bucket, k, body, contentType); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", loc, err)
	}
	return loc, nil
}
