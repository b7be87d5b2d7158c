package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File хранит значения в одном JSON-файле. Запись выполняется
// синхронно при каждой мутации через временный файл и rename,
// чтобы на диске всегда оставался целостный снимок.
type File struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFile открывает файловое хранилище по указанному пути.
// Отсутствующий или нечитаемый файл трактуется как пустое хранилище.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: empty file path")
	}

	f := &File{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	if err := json.Unmarshal(data, &f.values); err != nil {
		// Повреждённый файл не фатален: начинаем с пустого состояния.
		f.values = make(map[string]string)
	}

	return f, nil
}

// Get возвращает значение по ключу или ErrNotFound.
func (f *File) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set сохраняет значение по ключу и сбрасывает снимок на диск.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value
	return f.flush()
}

// Remove удаляет значение по ключу и сбрасывает снимок на диск.
// Отсутствие ключа не является ошибкой.
func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.flush()
}

func (f *File) flush() error {
	data, err := json.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("marshal storage snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write storage snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace storage snapshot: %w", err)
	}

	return nil
}
