// Package signer firma registros de benchmark con un par de claves asimétrico que
// se carga desde disco o se genera en el primer uso.
//
// Ciclo de vida: New → LoadKeys (Unready → Ready) → SignRecord / SignFields.
// Una vez Ready el material de clave no cambia (no hay rotación).
package signer

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/spore/internal/keyfile"
	"github.com/dropDatabas3/spore/internal/metrics"
	"github.com/dropDatabas3/spore/internal/observability/logger"
)

// DefaultSignField es el campo que agrega SignRecord.
const DefaultSignField = "sign"

// Outcome dice de dónde salió el par de claves.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeLoaded    Outcome = "loaded"
	OutcomeGenerated Outcome = "generated"
)

// Config: paths opcionales (en blanco = no se lee/escribe ese archivo),
// algoritmo y nombre del campo de firma.
type Config struct {
	PublicKeyPath  string
	PrivateKeyPath string
	Algorithm      string
	SignField      string
}

// KeyFiles abstrae el acceso a los archivos de clave (keyfile.Disk o keyfile.Cache).
type KeyFiles interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte, perm fs.FileMode) error
}

// KeyLocker lo implementan los KeyFiles que se comparten entre signers
// (keyfile.Cache). LoadKeys lo toma sobre el par de paths mientras lee,
// genera y persiste, así todos terminan con el mismo par.
type KeyLocker interface {
	Lock(paths ...string) (unlock func())
}

type Option func(*KeySigner)

func WithLogger(l *zap.Logger) Option { return func(s *KeySigner) { s.log = l } }

func WithKeyFiles(f KeyFiles) Option { return func(s *KeySigner) { s.files = f } }

// WithRand cambia la fuente aleatoria usada al generar claves.
func WithRand(r io.Reader) Option { return func(s *KeySigner) { s.rand = r } }

type keyMaterial struct {
	priv   crypto.Signer
	pub    crypto.PublicKey
	pubDER []byte
}

// KeySigner es seguro para uso concurrente una vez Ready.
type KeySigner struct {
	id     string
	cfg    Config
	scheme *Scheme
	files  KeyFiles
	rand   io.Reader
	log    *zap.Logger

	loadMu sync.Mutex // serializa LoadKeys

	mu      sync.RWMutex
	km      *keyMaterial
	outcome Outcome
}

// New valida la configuración. No toca el disco: eso lo hace LoadKeys.
func New(cfg Config, opts ...Option) (*KeySigner, error) {
	sc, err := LookupScheme(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = sc.Name
	cfg.PublicKeyPath = strings.TrimSpace(cfg.PublicKeyPath)
	cfg.PrivateKeyPath = strings.TrimSpace(cfg.PrivateKeyPath)
	if strings.TrimSpace(cfg.SignField) == "" {
		cfg.SignField = DefaultSignField
	}

	s := &KeySigner{
		id:     uuid.NewString(),
		cfg:    cfg,
		scheme: sc,
		files:  keyfile.Disk{},
		rand:   rand.Reader,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.Named("signer")
	}
	s.log = s.log.With(logger.SignerID(s.id), logger.Algorithm(sc.Name))
	return s, nil
}

// LoadKeys carga el par desde los paths configurados; ante cualquier falla de
// lectura genera un par nuevo y lo persiste en los paths configurados
// (sobrescribiendo). Nunca mezcla una clave leída con una generada.
//
// Errores: ErrKeyGeneration o ErrKeyPersistence (el signer queda Unready), o
// ctx.Err() si el contexto se canceló antes de generar. ErrKeyRead nunca sale.
// Si ya está Ready devuelve el Outcome original sin hacer nada.
func (s *KeySigner) LoadKeys(ctx context.Context) (Outcome, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if o := s.Outcome(); o != OutcomeNone {
		return o, nil
	}
	if l, ok := s.files.(KeyLocker); ok {
		defer l.Lock(s.cfg.PrivateKeyPath, s.cfg.PublicKeyPath)()
	}
	log := logger.From(ctx, s.log).With(logger.Op("load_keys"), logger.Path(s.cfg.PrivateKeyPath))

	km, err := s.readKeys()
	if err == nil {
		s.adopt(km, OutcomeLoaded)
		metrics.KeyLoads.WithLabelValues(string(OutcomeLoaded)).Inc()
		log.Info("keys loaded", logger.Outcome(string(OutcomeLoaded)), logger.Fingerprint(fingerprint(km.pubDER)))
		return OutcomeLoaded, nil
	}
	metrics.KeyReadFailures.Inc()
	log.Warn("key read failed, generating a new pair", logger.Err(err))

	if err := ctx.Err(); err != nil {
		return OutcomeNone, err
	}

	km, err = s.generate()
	if err != nil {
		metrics.KeyLoadErrors.WithLabelValues("generate").Inc()
		log.Error("key generation failed", logger.Err(err))
		return OutcomeNone, err
	}
	if err := s.saveKeys(km); err != nil {
		metrics.KeyLoadErrors.WithLabelValues("persist").Inc()
		log.Error("key persistence failed", logger.Err(err))
		return OutcomeNone, err
	}

	s.adopt(km, OutcomeGenerated)
	metrics.KeyLoads.WithLabelValues(string(OutcomeGenerated)).Inc()
	log.Info("keys generated",
		logger.Outcome(string(OutcomeGenerated)),
		logger.Fingerprint(fingerprint(km.pubDER)),
		zap.Bool("public_persisted", s.cfg.PublicKeyPath != ""),
		zap.Bool("private_persisted", s.cfg.PrivateKeyPath != ""),
	)
	return OutcomeGenerated, nil
}

// readKeys es todo-o-nada: la privada es obligatoria (sin ella no hay firma);
// la pública, si está configurada, tiene que corresponder a la privada.
func (s *KeySigner) readKeys() (*keyMaterial, error) {
	if s.cfg.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: private key path not configured", ErrKeyRead)
	}
	der, err := s.files.Read(s.cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyRead, err)
	}
	priv, err := keyfile.ParsePrivate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeyRead, s.cfg.PrivateKeyPath, err)
	}
	pub := priv.Public()
	if !s.scheme.accepts(pub) {
		return nil, fmt.Errorf("%w: %s: %T does not fit %s", ErrKeyRead, s.cfg.PrivateKeyPath, priv, s.scheme.Name)
	}

	if s.cfg.PublicKeyPath != "" {
		der, err := s.files.Read(s.cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyRead, err)
		}
		filePub, err := keyfile.ParsePublic(der)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrKeyRead, s.cfg.PublicKeyPath, err)
		}
		eq, ok := filePub.(interface{ Equal(crypto.PublicKey) bool })
		if !ok || !eq.Equal(pub) {
			return nil, fmt.Errorf("%w: public key does not match private key", ErrKeyRead)
		}
	}

	pubDER, err := keyfile.MarshalPublic(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyRead, err)
	}
	return &keyMaterial{priv: priv, pub: pub, pubDER: pubDER}, nil
}

func (s *KeySigner) generate() (*keyMaterial, error) {
	priv, err := s.scheme.generate(s.rand)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeyGeneration, s.scheme.Name, err)
	}
	pubDER, err := keyfile.MarshalPublic(priv.Public())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	return &keyMaterial{priv: priv, pub: priv.Public(), pubDER: pubDER}, nil
}

// saveKeys escribe pública y privada en los paths configurados.
func (s *KeySigner) saveKeys(km *keyMaterial) error {
	if s.cfg.PublicKeyPath != "" {
		if err := s.files.Write(s.cfg.PublicKeyPath, km.pubDER, keyfile.PublicPerm); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrKeyPersistence, s.cfg.PublicKeyPath, err)
		}
	}
	if s.cfg.PrivateKeyPath != "" {
		der, err := keyfile.MarshalPrivate(km.priv)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrKeyPersistence, err)
		}
		if err := s.files.Write(s.cfg.PrivateKeyPath, der, keyfile.PrivatePerm); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrKeyPersistence, s.cfg.PrivateKeyPath, err)
		}
	}
	return nil
}

func (s *KeySigner) adopt(km *keyMaterial, o Outcome) {
	s.mu.Lock()
	s.km = km
	s.outcome = o
	s.mu.Unlock()
}

func (s *KeySigner) material() (*keyMaterial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.km == nil {
		return nil, ErrNotReady
	}
	return s.km, nil
}

// ID identifica la instancia en logs.
func (s *KeySigner) ID() string { return s.id }

// Algorithm devuelve el esquema efectivo.
func (s *KeySigner) Algorithm() string { return s.scheme.Name }

// SignField devuelve el nombre del campo que agrega SignRecord.
func (s *KeySigner) SignField() string { return s.cfg.SignField }

// Ready indica si hay clave privada para firmar.
func (s *KeySigner) Ready() bool {
	_, err := s.material()
	return err == nil
}

// Outcome devuelve OutcomeNone mientras el signer no esté Ready.
func (s *KeySigner) Outcome() Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// PublicKey devuelve nil si no está Ready.
func (s *KeySigner) PublicKey() crypto.PublicKey {
	km, err := s.material()
	if err != nil {
		return nil
	}
	return km.pub
}

// PublicKeyDER devuelve una copia de la pública en X.509 SubjectPublicKeyInfo.
func (s *KeySigner) PublicKeyDER() []byte {
	km, err := s.material()
	if err != nil {
		return nil
	}
	out := make([]byte, len(km.pubDER))
	copy(out, km.pubDER)
	return out
}

// Fingerprint es el hex del SHA-256 del DER público ("" si no está Ready).
func (s *KeySigner) Fingerprint() string {
	km, err := s.material()
	if err != nil {
		return ""
	}
	return fingerprint(km.pubDER)
}

// SignatureSize es el largo fijo de cada firma (128 para RSA-1024).
func (s *KeySigner) SignatureSize() int {
	km, err := s.material()
	if err != nil {
		return 0
	}
	return s.scheme.sigSize(km.pub)
}

func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
