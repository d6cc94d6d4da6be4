package signer

import "errors"

var (
	// ErrKeyRead: archivo ausente, ilegible, DER inválido, tipo de clave distinto al
	// esquema, o pública/privada que no corresponden. LoadKeys lo recupera generando.
	ErrKeyRead = errors.New("signer: key read failed")

	// ErrKeyGeneration: falló la generación del par (fuente aleatoria, algoritmo).
	ErrKeyGeneration = errors.New("signer: key generation failed")

	// ErrKeyPersistence: no se pudo escribir un archivo de clave recién generado.
	ErrKeyPersistence = errors.New("signer: key persistence failed")

	// ErrNotReady: se pidió una firma antes de un LoadKeys exitoso.
	ErrNotReady = errors.New("signer: not ready, call LoadKeys first")

	// ErrSign: falló el primitivo de firma.
	ErrSign = errors.New("signer: signing failed")

	// ErrSignFieldExists: el registro ya trae un campo con el nombre reservado para la firma.
	ErrSignFieldExists = errors.New("signer: record already has the signature field")

	ErrUnknownAlgorithm = errors.New("signer: unknown algorithm")
	ErrNilRecord        = errors.New("signer: nil record")
)
