package logger

import (
	"time"

	"go.uber.org/zap"
)

// Op identifica la operación en curso (load_keys, sign_record, ...).
func Op(v string) zap.Field { return zap.String("op", v) }

// SignerID identifica una instancia de KeySigner.
func SignerID(v string) zap.Field { return zap.String("signer_id", v) }

// Path de un archivo de clave.
func Path(v string) zap.Field { return zap.String("path", v) }

// Algorithm es el esquema de firma (rsa-sha1, rsa-sha256, ed25519).
func Algorithm(v string) zap.Field { return zap.String("algorithm", v) }

// Outcome del load-or-generate: loaded | generated.
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// Fingerprint de la clave pública (hex sha256 del DER).
func Fingerprint(v string) zap.Field { return zap.String("fingerprint", v) }

// Count genérico.
func Count(v int) zap.Field { return zap.Int("count", v) }

// Duration de una operación.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Err agrega un error.
func Err(err error) zap.Field { return zap.Error(err) }
