package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"

	"fitgym_server/server/presence/repository"
)

// AvatarService stores user avatars: uploads are decoded, squared down to a
// thumbnail and written to the bucket; reads hand out short-lived presigned
// URLs.
type AvatarService struct {
	client *minio.Client
	bucket string
	users  *repository.UserRepository
}

func NewAvatarService(client *minio.Client, bucket string, users *repository.UserRepository) *AvatarService {
	return &AvatarService{client: client, bucket: bucket, users: users}
}

func (s *AvatarService) Upload(ctx context.Context, userID string, r io.Reader) (string, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode avatar image: %w", err)
	}
	thumb := imaging.Thumbnail(img, 256, 256, imaging.Lanczos)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return "", fmt.Errorf("encode avatar thumbnail: %w", err)
	}

	objectKey := fmt.Sprintf("avatars/%s.jpg", userID)
	_, err = s.client.PutObject(ctx, s.bucket, objectKey, buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateAvatar(ctx, userID, objectKey); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (s *AvatarService) DownloadURL(ctx context.Context, userID string) (string, error) {
	objectKey := fmt.Sprintf("avatars/%s.jpg", userID)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, 15*time.Minute, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
