// Package keyfile lee y escribe archivos de clave: el contenido del archivo es la
// codificación DER cruda de una sola clave, sin framing ni metadata.
//
// Escritura atómica (tmp → fsync → close → chmod → rename), así un fallo a mitad
// de camino nunca deja una clave truncada en el path final.
package keyfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	PrivatePerm fs.FileMode = 0o600
	PublicPerm  fs.FileMode = 0o644
)

var (
	ErrNoPath = errors.New("keyfile: path not configured")
	ErrEmpty  = errors.New("keyfile: empty key file")
)

// Blank indica si un path está vacío o sólo tiene espacios.
func Blank(path string) bool { return strings.TrimSpace(path) == "" }

// Write reemplaza por completo el contenido de path con data.
// Si el archivo existe se sobreescribe sin backup.
func Write(path string, data []byte, perm fs.FileMode) error {
	if Blank(path) {
		return ErrNoPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	// si algo falla antes del rename el tmp no queda en dir
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Read devuelve el contenido completo del archivo.
func Read(path string) ([]byte, error) {
	if Blank(path) {
		return nil, ErrNoPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return b, nil
}
