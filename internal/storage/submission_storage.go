package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// ErrFileMissing возвращается Open для ключа без файла.
var ErrFileMissing = errors.New("storage: файл не найден")

const fallbackContentType = "application/octet-stream"

// SubmissionStorage хранит файлы сдачи работы на локальном диске.
type SubmissionStorage struct {
	rootPath string
}

// NewSubmissionStorage создаёт файловое хранилище.
func NewSubmissionStorage(rootPath string) (*SubmissionStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("storage: некорректный путь %s: %w", rootPath, err)
	}
	return &SubmissionStorage{rootPath: abs}, nil
}

// Save записывает файл в каталог контракта и возвращает ключ хранения.
func (s *SubmissionStorage) Save(ctx context.Context, contractID uuid.UUID, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(sanitizeFilename(filename)))
	key := filepath.ToSlash(filepath.Join("contracts", contractID.String(), uuid.NewString()+ext))

	targetPath := filepath.Join(s.rootPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог контракта: %w", err)
	}

	tempPath := targetPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return key, nil
}

// Open открывает файл по ключу и возвращает его размер.
func (s *SubmissionStorage) Open(ctx context.Context, storageKey string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	path, err := s.resolve(storageKey)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrFileMissing
		}
		return nil, 0, fmt.Errorf("storage: не удалось открыть файл: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("storage: не удалось прочитать атрибуты файла: %w", err)
	}

	return f, info.Size(), nil
}

// Delete удаляет файл. Отсутствующий файл не считается ошибкой.
func (s *SubmissionStorage) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// DetectContentType определяет тип по магическим байтам.
// Если сигнатура неизвестна, берётся заявленный клиентом тип.
func (s *SubmissionStorage) DetectContentType(data []byte, declared string) string {
	head := data
	if len(head) > 262 {
		head = head[:262]
	}
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}

	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	return fallbackContentType
}

// resolve не выпускает ключ за пределы корня хранилища.
func (s *SubmissionStorage) resolve(storageKey string) (string, error) {
	path := filepath.Join(s.rootPath, filepath.FromSlash(filepath.Clean("/"+storageKey)))
	if !strings.HasPrefix(path, s.rootPath+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: некорректный ключ %q", storageKey)
	}
	return path, nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "file"
	}
	return name
}
