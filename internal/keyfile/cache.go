package keyfile

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Disk es el acceso directo al filesystem.
type Disk struct{}

func (Disk) Read(path string) ([]byte, error) { return Read(path) }

func (Disk) Write(path string, data []byte, perm fs.FileMode) error {
	return Write(path, data, perm)
}

// Cache es un read-through cache de archivos de clave por path.
// Pensado para benchmarks con un KeySigner por worker: todos leen el mismo par
// de archivos y sólo uno va a disco. Los errores no se cachean.
// Las escrituras hechas a través del Cache invalidan la entrada.
type Cache struct {
	c  *gocache.Cache
	sf singleflight.Group

	mu    sync.Mutex
	gen   map[string]uint64      // se incrementa en cada Write; lecturas viejas no repueblan
	locks map[string]*sync.Mutex // por par de paths, ver Lock
}

// NewCache crea un cache con el TTL dado (0 => 5m).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		c:     gocache.New(ttl, time.Minute),
		gen:   make(map[string]uint64),
		locks: make(map[string]*sync.Mutex),
	}
}

func cacheKey(path string) string { return filepath.Clean(path) }

// Read devuelve una copia del contenido del archivo.
func (c *Cache) Read(path string) ([]byte, error) {
	if Blank(path) {
		return nil, ErrNoPath
	}
	k := cacheKey(path)
	if v, ok := c.c.Get(k); ok {
		return clone(v.([]byte)), nil
	}
	v, err, _ := c.sf.Do(k, func() (any, error) {
		c.mu.Lock()
		g := c.gen[k]
		c.mu.Unlock()

		b, err := Read(path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen[k] == g {
			c.c.SetDefault(k, b)
		}
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]byte)), nil
}

// Write escribe en disco e invalida la entrada. Una lectura en vuelo que
// empezó antes no vuelve a cachear el contenido anterior.
func (c *Cache) Write(path string, data []byte, perm fs.FileMode) error {
	if Blank(path) {
		return ErrNoPath
	}
	k := cacheKey(path)
	err := Write(path, data, perm)

	c.mu.Lock()
	c.gen[k]++
	c.c.Delete(k)
	c.mu.Unlock()
	c.sf.Forget(k)
	return err
}

// Invalidate descarta la entrada de path (p.ej. si otro proceso reescribió el archivo).
func (c *Cache) Invalidate(path string) {
	k := cacheKey(path)
	c.mu.Lock()
	c.gen[k]++
	c.c.Delete(k)
	c.mu.Unlock()
	c.sf.Forget(k)
}

// Lock toma un mutex propio del conjunto de paths (paths en blanco se ignoran)
// y devuelve la función que lo libera. Los signers que comparten el Cache lo
// usan para que load-or-generate sobre el mismo par corra de a uno: el primero
// genera y persiste, los siguientes leen ese par.
func (c *Cache) Lock(paths ...string) (unlock func()) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if !Blank(p) {
			keys = append(keys, cacheKey(p))
		}
	}
	k := strings.Join(keys, "\x00")

	c.mu.Lock()
	m, ok := c.locks[k]
	if !ok {
		m = &sync.Mutex{}
		c.locks[k] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
