package profile

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mealsuggest"
)

// S3 is a Provider reading the profiles document from an S3 object.
type S3 struct {
	bucket string
	key    string
	s3     *s3.Client
}

func NewS3(s3Client *s3.Client, bucket, key string) *S3 {
	return &S3{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (p *S3) Load(ctx context.Context, userID string) (*mealsuggest.UserProfile, error) {
	resp, err := p.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles object from S3: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles object: %w", err)
	}
	return decodeDocument(data, userID)
}
