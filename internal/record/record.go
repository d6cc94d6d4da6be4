// Package record define el registro clave/valor que producen los workloads del
// benchmark: un mapa ordenado nombre de campo → bytes.
package record

import (
	"encoding/binary"
)

// canonicalTag separa la codificación de registros de cualquier otro uso de la clave.
const canonicalTag = "spore.record.v1"

// Record mantiene los campos en orden de inserción.
// El orden importa: la firma de registro completo depende de él.
// No es seguro para uso concurrente.
type Record struct {
	names  []string
	values map[string][]byte
}

// New crea un registro vacío.
func New() *Record {
	return &Record{values: map[string][]byte{}}
}

// FromPairs arma un registro a partir de pares nombre/valor (texto), en orden.
// Útil en tests y en la CLI. Un número impar de argumentos ignora el último.
func FromPairs(kv ...string) *Record {
	r := New()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], []byte(kv[i+1]))
	}
	return r
}

// Set agrega o reemplaza un campo. Reemplazar conserva la posición original.
func (r *Record) Set(name string, value []byte) {
	if r.values == nil {
		r.values = map[string][]byte{}
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get devuelve el valor del campo (sin copiar).
func (r *Record) Get(name string) ([]byte, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has indica si el campo existe.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Len devuelve la cantidad de campos.
func (r *Record) Len() int { return len(r.names) }

// Names devuelve una copia de los nombres en orden de inserción.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Range recorre los campos en orden. Si fn devuelve false se corta.
func (r *Record) Range(fn func(name string, value []byte) bool) {
	for _, n := range r.names {
		if !fn(n, r.values[n]) {
			return
		}
	}
}

// Clone hace una copia profunda (nombres y bytes).
func (r *Record) Clone() *Record {
	c := &Record{
		names:  make([]string, len(r.names)),
		values: make(map[string][]byte, len(r.values)),
	}
	copy(c.names, r.names)
	for k, v := range r.values {
		cp := make([]byte, len(v))
		copy(cp, v)
		c.values[k] = cp
	}
	return c
}

// Canonical devuelve la codificación determinística del registro:
//
//	tag || 0x00 || u32(n) || { u32(len(name)) || name || u32(len(value)) || value }*
//
// Enteros big-endian, campos en orden de inserción.
func (r *Record) Canonical() []byte {
	size := len(canonicalTag) + 1 + 4
	for _, n := range r.names {
		size += 8 + len(n) + len(r.values[n])
	}
	out := make([]byte, 0, size)
	out = append(out, canonicalTag...)
	out = append(out, 0)
	out = binary.BigEndian.AppendUint32(out, uint32(len(r.names)))
	for _, n := range r.names {
		v := r.values[n]
		out = binary.BigEndian.AppendUint32(out, uint32(len(n)))
		out = append(out, n...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(v)))
		out = append(out, v...)
	}
	return out
}
