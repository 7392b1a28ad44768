package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/telegate/telegate/internal/domain"
	"github.com/telegate/telegate/internal/telegram"
)

// MediaStore serves media files for the download endpoint, backed by a disk
// cache laid out as {cacheDir}/{channelID}/{messageID}/{fileName}. A cache
// hit never touches the upstream.
type MediaStore struct {
	session  *telegram.SessionManager
	resolver *telegram.Resolver
	media    *telegram.MediaResolver
	cacheDir string
	logger   *zap.Logger
}

func NewMediaStore(session *telegram.SessionManager, resolver *telegram.Resolver, media *telegram.MediaResolver, cacheDir string, logger *zap.Logger) (*MediaStore, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media cache dir: %w", err)
	}
	return &MediaStore{
		session:  session,
		resolver: resolver,
		media:    media,
		cacheDir: cacheDir,
		logger:   logger,
	}, nil
}

// Get returns the on-disk path of the named media file, downloading it into
// the cache on a miss. fileName is reduced to its base name so a request
// cannot escape the cache directory.
func (s *MediaStore) Get(ctx context.Context, msgID int, fileName string) (string, error) {
	if err := s.session.EnsureAuthorized(); err != nil {
		return "", err
	}
	if msgID <= 0 {
		return "", fmt.Errorf("%w: message id must be positive", domain.ErrInvalidRequest)
	}
	fileName = filepath.Base(fileName)
	if fileName == "." || fileName == string(filepath.Separator) || fileName == "" {
		return "", fmt.Errorf("%w: empty file name", domain.ErrInvalidRequest)
	}

	peer, _, err := s.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.cacheDir,
		strconv.FormatInt(peer.ChannelID, 10),
		strconv.Itoa(msgID),
		fileName)
	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("media cache hit", zap.String("path", path))
		return path, nil
	}

	raw, err := s.media.FetchMessage(ctx, peer, msgID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media cache entry dir: %w", err)
	}

	// Download into a temp file first so a partial fetch never becomes a
	// cache hit.
	tmp, err := os.CreateTemp(filepath.Dir(path), fileName+".part*")
	if err != nil {
		return "", fmt.Errorf("create media temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.media.Download(ctx, raw, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close media temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("commit media cache entry: %w", err)
	}

	s.logger.Info("media cached",
		zap.Int("message_id", msgID),
		zap.String("file_name", fileName),
	)
	return path, nil
}
