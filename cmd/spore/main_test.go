package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/spore/internal/observability/logger"
	"github.com/dropDatabas3/spore/internal/record"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	logger.Replace(zap.NewNop())

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func keyArgs(t *testing.T) []string {
	dir := t.TempDir()
	return []string{
		"--public-key", filepath.Join(dir, "pub.der"),
		"--private-key", filepath.Join(dir, "priv.der"),
	}
}

func TestKeysInit_GeneratesThenLoads(t *testing.T) {
	keys := keyArgs(t)

	out, _, err := run(t, "", append([]string{"keys", "init"}, keys...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "outcome=generated")
	assert.Contains(t, out, "algorithm=rsa-sha1")
	assert.Contains(t, out, "signature_size=128")

	out2, _, err := run(t, "", append([]string{"keys", "init"}, keys...)...)
	require.NoError(t, err)
	assert.Contains(t, out2, "outcome=loaded")

	fp := func(s string) string {
		for _, l := range strings.Split(s, "\n") {
			if strings.HasPrefix(l, "fingerprint=") {
				return l
			}
		}
		return ""
	}
	assert.Equal(t, fp(out), fp(out2))
}

func TestKeysShow_PEM(t *testing.T) {
	out, _, err := run(t, "", append([]string{"keys", "show", "--algorithm", "ed25519"}, keyArgs(t)...)...)
	require.NoError(t, err)
	block, _ := pem.Decode([]byte(out))
	require.NotNil(t, block)
	assert.Equal(t, "PUBLIC KEY", block.Type)
}

func TestSignFields_Stream(t *testing.T) {
	in := `{"name":"alice","age":"30"}

{"name":"bob","age":"41"}
`
	out, _, err := run(t, in, append([]string{"sign", "fields", "--batch", "1", "--workers", "2"}, keyArgs(t)...)...)
	require.NoError(t, err)

	sc := bufio.NewScanner(strings.NewReader(out))
	var recs []*record.Record
	for sc.Scan() {
		r, err := record.ParseJSON(sc.Bytes())
		require.NoError(t, err)
		recs = append(recs, r)
	}
	require.Len(t, recs, 2)
	for i, want := range []string{"alice", "bob"} {
		assert.Equal(t, []string{"name", "age"}, recs[i].Names())
		v, _ := recs[i].Get("name")
		raw, err := base64.StdEncoding.DecodeString(string(v))
		require.NoError(t, err)
		assert.Equal(t, len(want)+128, len(raw))
		assert.Equal(t, want, string(raw[:len(want)]))
	}
}

func TestSignRecord_DefaultModeAndMetrics(t *testing.T) {
	out, errOut, err := run(t, `{"k":"v"}`+"\n", append([]string{"sign", "--metrics"}, keyArgs(t)...)...)
	require.NoError(t, err)
	r, err := record.ParseJSON([]byte(strings.TrimSpace(out)))
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "sign"}, r.Names())
	assert.Contains(t, errOut, "spore_signatures_total")
	assert.Contains(t, errOut, "spore_key_loads_total")
}

func TestSign_Errors(t *testing.T) {
	_, _, err := run(t, "not json\n", "sign", "record")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	_, _, err = run(t, `{"sign":"x"}`+"\n", "sign", "record")
	require.Error(t, err)

	_, _, err = run(t, "", "sign", "both")
	require.Error(t, err)

	_, _, err = run(t, "", "keys", "init", "--algorithm", "dsa")
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "spore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
signer:
  algorithm: ed25519
  private_key_path: keys/priv.der
  cache_keys: true
`), 0o600))

	out, _, err := run(t, "", "keys", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "signature_size=64")
	_, err = os.Stat(filepath.Join(dir, "keys", "priv.der"))
	require.NoError(t, err)
}
