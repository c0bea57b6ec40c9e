package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"task_manager/internal/config"
	"task_manager/pkg/logger"
)

// MediaService хранит блобы вложений чата и строит абсолютные URL для
// фронтенда. Раздача самих файлов — забота внешнего static-сервера.
type MediaService interface {
	SaveAttachment(ctx context.Context, filename string, data []byte) (string, error)
	URL(path string) string
}

type mediaService struct {
	cfg config.MediaConfig
	log logger.Logger
}

func NewMediaService(cfg config.MediaConfig, log logger.Logger) MediaService {
	return &mediaService{cfg: cfg, log: log}
}

func (s *mediaService) SaveAttachment(ctx context.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		s.log.Error("Failed to create media dir", "dir", s.cfg.Dir, "error", err)
		return "", err
	}

	// uuid-префикс против коллизий имён от разных пользователей
	name := fmt.Sprintf("%s_%s", uuid.New(), filepath.Base(filename))
	if err := os.WriteFile(filepath.Join(s.cfg.Dir, name), data, 0o644); err != nil {
		s.log.Error("Failed to write attachment", "file", name, "error", err)
		return "", err
	}

	return name, nil
}

func (s *mediaService) URL(path string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + path
}
