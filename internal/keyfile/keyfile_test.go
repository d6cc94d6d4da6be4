package keyfile

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_ReplacesContentAndSetsPerm(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "priv.der")

	require.NoError(t, Write(p, []byte("first-longer-content"), PrivatePerm))
	require.NoError(t, Write(p, []byte("second"), PrivatePerm))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	if runtime.GOOS != "windows" {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, PrivatePerm, st.Mode().Perm())
	}

	// no deja temporales
	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteRead_BlankPath(t *testing.T) {
	require.ErrorIs(t, Write("  ", []byte("x"), PublicPerm), ErrNoPath)
	_, err := Read("")
	require.ErrorIs(t, err, ErrNoPath)
}

func TestRead_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = Read(empty)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestDER_RoundTripRSAAndEd25519(t *testing.T) {
	rk, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	_, ek, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	for name, priv := range map[string]crypto.Signer{"rsa": rk, "ed25519": ek} {
		t.Run(name, func(t *testing.T) {
			der, err := MarshalPrivate(priv)
			require.NoError(t, err)
			signer, err := ParsePrivate(der)
			require.NoError(t, err)

			pubDER, err := MarshalPublic(signer.Public())
			require.NoError(t, err)
			pub, err := ParsePublic(pubDER)
			require.NoError(t, err)
			eq, ok := pub.(interface{ Equal(crypto.PublicKey) bool })
			require.True(t, ok)
			assert.True(t, eq.Equal(priv.Public()))
		})
	}
}

func TestParse_Garbage(t *testing.T) {
	_, err := ParsePrivate([]byte("not a key"))
	require.Error(t, err)
	_, err = ParsePublic([]byte("not a key"))
	require.Error(t, err)
}

func TestCache_ReadThroughAndInvalidateOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pub.der")
	require.NoError(t, os.WriteFile(p, []byte("v1"), 0o644))

	c := NewCache(time.Minute)
	b, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	// escritura externa: el cache sigue devolviendo v1
	require.NoError(t, os.WriteFile(p, []byte("v2"), 0o644))
	b, err = c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	c.Invalidate(p)
	b, err = c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))

	require.NoError(t, c.Write(p, []byte("v3"), PublicPerm))
	b, err = c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "v3", string(b))
}

func TestCache_ReturnsCopies(t *testing.T) {
	p := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(p, []byte("abc"), 0o600))
	c := NewCache(0)

	b, err := c.Read(p)
	require.NoError(t, err)
	b[0] = 'z'

	b2, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b2))
}

func TestCache_DoesNotCacheErrors(t *testing.T) {
	p := filepath.Join(t.TempDir(), "later")
	c := NewCache(time.Minute)

	_, err := c.Read(p)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte("now"), 0o600))
	b, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "now", string(b))
}

func TestCache_ConcurrentReaders(t *testing.T) {
	p := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(p, []byte("shared"), 0o600))
	c := NewCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Read(p)
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(b))
		}()
	}
	wg.Wait()
}

func TestCache_WriteWinsOverInFlightReads(t *testing.T) {
	p := filepath.Join(t.TempDir(), "k")
	require.NoError(t, os.WriteFile(p, []byte("v0"), 0o600))
	c := NewCache(time.Minute)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = c.Read(p)
				}
			}
		}()
	}
	for i := 1; i <= 50; i++ {
		require.NoError(t, c.Write(p, []byte(fmt.Sprintf("v%d", i)), PrivatePerm))
	}
	close(stop)
	wg.Wait()

	b, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "v50", string(b))
}

func TestCache_LockSerializesSamePaths(t *testing.T) {
	c := NewCache(0)
	unlock := c.Lock("a/priv.der", "a/pub.der")

	// otro par no espera
	other := make(chan struct{})
	go func() {
		c.Lock("b/priv.der", "b/pub.der")()
		close(other)
	}()
	select {
	case <-other:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different pair blocked")
	}

	same := make(chan struct{})
	go func() {
		c.Lock("a/./priv.der", "a/pub.der")()
		close(same)
	}()
	select {
	case <-same:
		t.Fatal("lock on the same pair did not wait")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-same:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released")
	}
}
