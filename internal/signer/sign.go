package signer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/spore/internal/metrics"
	"github.com/dropDatabas3/spore/internal/record"
)

// Mode elige la estrategia de firma.
type Mode int

const (
	// ModeRecord: una firma sobre el registro completo, en un campo nuevo.
	ModeRecord Mode = iota
	// ModeFields: una firma por campo, concatenada al valor.
	ModeFields
)

func (m Mode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModeFields:
		return "fields"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode acepta "record" o "fields".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "record":
		return ModeRecord, nil
	case "fields":
		return ModeFields, nil
	}
	return 0, fmt.Errorf("signer: unknown mode %q", s)
}

func (s *KeySigner) sign(km *keyMaterial, msg []byte) ([]byte, error) {
	sig, err := s.scheme.Method.Sign(string(msg), km.priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	return sig, nil
}

// SignRecord agrega al registro un campo SignField con la firma de su
// codificación canónica (record.Canonical). Los demás campos no se tocan.
// Si el campo ya existe devuelve ErrSignFieldExists y no modifica nada.
func (s *KeySigner) SignRecord(rec *record.Record) (err error) {
	defer observe(ModeRecord, time.Now(), &err)

	if rec == nil {
		return ErrNilRecord
	}
	km, err := s.material()
	if err != nil {
		return err
	}
	if rec.Has(s.cfg.SignField) {
		return fmt.Errorf("%w: %q", ErrSignFieldExists, s.cfg.SignField)
	}
	sig, err := s.sign(km, rec.Canonical())
	if err != nil {
		return err
	}
	rec.Set(s.cfg.SignField, sig)
	return nil
}

// SignFields reemplaza cada valor por valor||firma(valor). Cada firma depende
// sólo de los bytes de su campo. Todas las firmas se calculan antes de mutar,
// así que ante un error el registro queda intacto.
func (s *KeySigner) SignFields(rec *record.Record) (err error) {
	defer observe(ModeFields, time.Now(), &err)

	if rec == nil {
		return ErrNilRecord
	}
	km, err := s.material()
	if err != nil {
		return err
	}

	names := rec.Names()
	signed := make([][]byte, len(names))
	for i, n := range names {
		v, _ := rec.Get(n)
		sig, err := s.sign(km, v)
		if err != nil {
			return fmt.Errorf("field %q: %w", n, err)
		}
		out := make([]byte, 0, len(v)+len(sig))
		out = append(out, v...)
		signed[i] = append(out, sig...)
	}
	for i, n := range names {
		rec.Set(n, signed[i])
	}
	return nil
}

// Sign despacha según el modo.
func (s *KeySigner) Sign(rec *record.Record, mode Mode) error {
	switch mode {
	case ModeRecord:
		return s.SignRecord(rec)
	case ModeFields:
		return s.SignFields(rec)
	default:
		return fmt.Errorf("signer: unknown mode %v", mode)
	}
}

// SignRecords firma un lote en paralelo con hasta workers goroutines
// (<= 0 usa GOMAXPROCS). Al primer error cancela el resto y lo devuelve.
func (s *KeySigner) SignRecords(ctx context.Context, recs []*record.Record, mode Mode, workers int) error {
	if _, err := s.material(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range recs {
		i, rec := i, rec
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.Sign(rec, mode); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func observe(mode Mode, start time.Time, err *error) {
	m := mode.String()
	if *err != nil {
		metrics.SignErrors.WithLabelValues(m).Inc()
		return
	}
	metrics.Signatures.WithLabelValues(m).Inc()
	metrics.SignDuration.WithLabelValues(m).Observe(time.Since(start).Seconds())
}
