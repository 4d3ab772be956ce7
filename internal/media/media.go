// Package media загружает картинки каталога в S3-совместимое хранилище.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitcoach/internal/config"
)

// Виды загружаемых картинок. Вид становится префиксом ключа.
const (
	KindProducts = "products"
	KindWorkouts = "workouts"
)

var (
	ErrInvalidKind     = errors.New("unknown media kind")
	ErrUnsupportedType = errors.New("only jpeg, png and webp images are accepted")
	ErrTooLarge        = errors.New("image is too large")
	ErrEmpty           = errors.New("image is empty")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectPutter — часть *s3.Client, нужная для загрузки.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client создаёт клиента S3. Статические ключи используются, если заданы,
// иначе — стандартная цепочка учётных данных AWS.
func NewS3Client(ctx context.Context, cfg config.Media) (*s3.Client, error) {
	const op = "media.NewS3Client"

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Uploader сохраняет картинки и возвращает их публичный адрес.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	maxSize int64
}

// New создаёт Uploader.
func New(client ObjectPutter, cfg config.Media) *Uploader {
	base := cfg.PublicBaseURL
	if base == "" && cfg.Endpoint != "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		maxSize: cfg.MaxSizeBytes,
	}
}

// Upload проверяет тип и размер картинки и загружает её под ключом <kind>/<uuid><ext>.
func (u *Uploader) Upload(ctx context.Context, kind string, r io.Reader) (string, error) {
	const op = "media.Upload"

	if kind != KindProducts && kind != KindWorkouts {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidKind)
	}

	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmpty)
	}
	if int64(len(data)) > u.maxSize {
		return "", fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%s: %w: %s", op, ErrUnsupportedType, contentType)
	}

	key := kind + "/" + uuid.NewString() + ext
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return u.baseURL + "/" + key, nil
}
