// Package archive stores committed turn summaries in S3 under
// date-partitioned keys:
//
//	s3://<bucket>/<prefix>/YYYY/MM/DD/<game id>/turn-NNNN.json
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"labelsim/internal/game"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3 struct {
	bucket   string
	prefix   string
	uploader uploader
	now      func() time.Time
}

// NewS3 loads AWS configuration from the environment (AWS_REGION,
// AWS_PROFILE, static keys) and builds an uploader for bucket.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive: bucket required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3(manager.NewUploader(s3.NewFromConfig(cfg)), bucket, prefix), nil
}

func newS3(u uploader, bucket, prefix string) *S3 {
	return &S3{bucket: bucket, prefix: prefix, uploader: u, now: time.Now}
}

// Key is the object key a summary is stored under when archived at ts.
func (a *S3) Key(s game.TurnSummary, ts time.Time) string {
	year, month, day := ts.UTC().Date()
	return path.Join(a.prefix,
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		s.GameID,
		fmt.Sprintf("turn-%04d.json", s.Turn),
	)
}

func (a *S3) Publish(ctx context.Context, s game.TurnSummary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.bucket),
		Key:                  aws.String(a.Key(s, a.now())),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"game-id":         s.GameID,
			"balance-version": s.BalanceVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}
