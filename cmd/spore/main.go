package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/spore/internal/config"
	"github.com/dropDatabas3/spore/internal/keyfile"
	"github.com/dropDatabas3/spore/internal/metrics"
	"github.com/dropDatabas3/spore/internal/observability/logger"
	"github.com/dropDatabas3/spore/internal/signer"
)

// app es el estado compartido entre subcomandos, armado en PersistentPreRunE.
type app struct {
	envFile     string
	configPath  string
	publicKey   string
	privateKey  string
	algorithm   string
	signField   string
	dumpMetrics bool

	cfg *config.Config
	reg *prometheus.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "spore",
		Short:         "Firma de registros clave/valor para benchmarks (record o por campo)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.dumpMetrics && a.reg != nil {
				return writeMetrics(cmd.ErrOrStderr(), a.reg)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "ruta a .env (se ignora si no existe)")
	pf.StringVar(&a.configPath, "config", "", "ruta a config.yaml (default: spore.yaml si existe, si no sólo env)")
	pf.StringVar(&a.publicKey, "public-key", "", "path de la clave pública (X.509 DER)")
	pf.StringVar(&a.privateKey, "private-key", "", "path de la clave privada (PKCS#8 DER)")
	pf.StringVar(&a.algorithm, "algorithm", "", "rsa-sha1 | rsa-sha256 | ed25519")
	pf.StringVar(&a.signField, "sign-field", "", "nombre del campo de firma en modo record")
	pf.BoolVar(&a.dumpMetrics, "metrics", false, "imprime las métricas en stderr al terminar")

	root.AddCommand(newKeysCmd(a))
	root.AddCommand(newSignCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		_ = godotenv.Load(a.envFile)
	}

	path := a.configPath
	if path == "" && fileExists("spore.yaml") {
		path = "spore.yaml"
	}
	var err error
	if path != "" {
		a.cfg, err = config.Load(path)
	} else {
		a.cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// flags explícitos pisan config y env
	f := cmd.Flags()
	if f.Changed("public-key") {
		a.cfg.Signer.PublicKeyPath = a.publicKey
	}
	if f.Changed("private-key") {
		a.cfg.Signer.PrivateKeyPath = a.privateKey
	}
	if f.Changed("algorithm") {
		a.cfg.Signer.Algorithm = a.algorithm
	}
	if f.Changed("sign-field") {
		a.cfg.Signer.SignField = a.signField
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Env: a.cfg.App.Env, Level: a.cfg.Log.Level})

	a.reg = prometheus.NewRegistry()
	return metrics.Register(a.reg)
}

// loadSigner construye el KeySigner y ejecuta load-or-generate.
func (a *app) loadSigner(ctx context.Context) (*signer.KeySigner, signer.Outcome, error) {
	var opts []signer.Option
	if a.cfg.Signer.CacheKeys {
		opts = append(opts, signer.WithKeyFiles(keyfile.NewCache(time.Minute)))
	}
	s, err := signer.New(a.cfg.SignerConfig(), opts...)
	if err != nil {
		return nil, signer.OutcomeNone, err
	}
	o, err := s.LoadKeys(ctx)
	if err != nil {
		return nil, signer.OutcomeNone, err
	}
	return s, o, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "spore_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
