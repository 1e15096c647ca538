package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hypernova-labs/cadastro-service/internal/config"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// StoredFile descreve um arquivo gravado no disco
type StoredFile struct {
	OriginalName string
	StoredName   string
	ContentType  string
	SizeBytes    int64
	SHA256       string
}

// LocalFileStorage grava anexos no sistema de arquivos local. O nome
// armazenado é um uuid com a extensão original, o que impede colisão e
// path traversal a partir do nome enviado.
type LocalFileStorage struct {
	basePath    string
	maxBytes    int64
	mimeAllowed func(string) bool
	logger      *logrus.Logger
}

// NewLocalFileStorage cria o storage e garante o diretório base
func NewLocalFileStorage(cfg config.UploadConfig, logger *logrus.Logger) (*LocalFileStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("error creating upload directory: %w", err)
	}

	return &LocalFileStorage{
		basePath:    cfg.BasePath,
		maxBytes:    cfg.MaxFileSizeMB * 1024 * 1024,
		mimeAllowed: cfg.MimeAllowed,
		logger:      logger,
	}, nil
}

// Save valida e grava o conteúdo, devolvendo os metadados do arquivo.
// O content-type é detectado do conteúdo, não do cabeçalho do cliente.
func (s *LocalFileStorage) Save(originalName string, content io.Reader) (*StoredFile, error) {
	limited := io.LimitReader(content, s.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, models.NewConflictError(
			fmt.Sprintf("Arquivo excede o tamanho máximo de %d MB.", s.maxBytes/(1024*1024)))
	}
	if len(data) == 0 {
		return nil, models.NewConflictError("Arquivo vazio.")
	}

	detected := mimetype.Detect(data)
	if !s.mimeAllowed(detected.String()) {
		return nil, models.NewConflictError(
			fmt.Sprintf("Tipo de arquivo não permitido: %s.", detected.String()))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = detected.Extension()
	}
	storedName := uuid.NewString() + ext

	path := filepath.Join(s.basePath, storedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("error writing upload: %w", err)
	}

	sum := sha256.Sum256(data)
	s.logger.WithFields(logrus.Fields{
		"stored_name": storedName,
		"size_bytes":  len(data),
		"mime":        detected.String(),
	}).Info("File stored")

	return &StoredFile{
		OriginalName: filepath.Base(originalName),
		StoredName:   storedName,
		ContentType:  detected.String(),
		SizeBytes:    int64(len(data)),
		SHA256:       hex.EncodeToString(sum[:]),
	}, nil
}

// Open abre um arquivo armazenado para leitura
func (s *LocalFileStorage) Open(storedName string) (*os.File, error) {
	// storedName vem do banco, mas o clean evita surpresas
	clean := filepath.Base(storedName)
	file, err := os.Open(filepath.Join(s.basePath, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewNotFoundError("Arquivo não encontrado.")
		}
		return nil, fmt.Errorf("error opening stored file: %w", err)
	}
	return file, nil
}

// Remove apaga um arquivo armazenado (best-effort)
func (s *LocalFileStorage) Remove(storedName string) error {
	clean := filepath.Base(storedName)
	if err := os.Remove(filepath.Join(s.basePath, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing stored file: %w", err)
	}
	return nil
}
