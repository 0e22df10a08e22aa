package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/storage"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestSubmissionStorage_SaveAndOpen(t *testing.T) {
	s, err := storage.NewSubmissionStorage(t.TempDir())
	require.NoError(t, err)
	contractID := uuid.New()

	key, err := s.Save(context.Background(), contractID, "../../report.PDF", []byte("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "contracts/"+contractID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	body, size, err := s.Open(context.Background(), key)
	require.NoError(t, err)
	defer body.Close()
	assert.EqualValues(t, 5, size)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSubmissionStorage_OpenMissing(t *testing.T) {
	s, err := storage.NewSubmissionStorage(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), "contracts/"+uuid.NewString()+"/nope.txt")
	assert.ErrorIs(t, err, storage.ErrFileMissing)
}

func TestSubmissionStorage_KeyCannotEscapeRoot(t *testing.T) {
	s, err := storage.NewSubmissionStorage(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), "../../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrFileMissing)
}

func TestSubmissionStorage_Delete(t *testing.T) {
	s, err := storage.NewSubmissionStorage(t.TempDir())
	require.NoError(t, err)

	key, err := s.Save(context.Background(), uuid.New(), "notes.txt", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), key))
	require.NoError(t, s.Delete(context.Background(), key))

	_, _, err = s.Open(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrFileMissing)
}

func TestSubmissionStorage_DetectContentType(t *testing.T) {
	s, err := storage.NewSubmissionStorage(t.TempDir())
	require.NoError(t, err)

	tests := map[string]struct {
		data     []byte
		declared string
		want     string
	}{
		"magic wins over declared": {data: pngHeader, declared: "text/plain", want: "image/png"},
		"declared with params":     {data: []byte("plain text"), declared: "text/plain; charset=utf-8", want: "text/plain"},
		"unknown everything":       {data: []byte("???"), declared: "", want: "application/octet-stream"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.DetectContentType(tc.data, tc.declared))
		})
	}
}
