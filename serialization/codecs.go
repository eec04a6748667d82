package serialization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/obinnaokechukwu/tpgo"
)

// ErrValueTooLarge is returned by Encode when a value does not fit the
// codec's entry size.
var ErrValueTooLarge = errors.New("serialization: value too large for entry")

// Float64Codec stores float64 values whose priority is the value itself.
type Float64Codec struct{}

var _ PriorityCodec[float64] = Float64Codec{}

func (Float64Codec) EntrySize() tpgo.EntrySize { return tpgo.Bytes8 }

func (Float64Codec) Encode(v float64, buf []byte) (float64, error) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return v, nil
}

func (Float64Codec) Decode(_ float64, buf []byte) (float64, error) {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// KeyedCodec stores fixed-size values in their little-endian binary form
// (see encoding/binary) and orders them by a caller-supplied key.
type KeyedCodec[T any] struct {
	size     tpgo.EntrySize
	priority func(T) float64
}

// NewKeyedCodec returns a codec ordering T values by priority. T must have a
// fixed binary size no larger than tpgo.MaxEntrySize.
func NewKeyedCodec[T any](priority func(T) float64) (*KeyedCodec[T], error) {
	size, err := binarySize[T]()
	if err != nil {
		return nil, err
	}
	return &KeyedCodec[T]{size: size, priority: priority}, nil
}

func (c *KeyedCodec[T]) EntrySize() tpgo.EntrySize { return c.size }

func (c *KeyedCodec[T]) Encode(v T, buf []byte) (float64, error) {
	if _, err := binary.Encode(buf, binary.LittleEndian, v); err != nil {
		return 0, fmt.Errorf("serialization: encoding %T: %w", v, err)
	}
	return c.priority(v), nil
}

func (c *KeyedCodec[T]) Decode(_ float64, buf []byte) (T, error) {
	var v T
	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("serialization: decoding %T: %w", v, err)
	}
	return v, nil
}

// BinaryCodec stores fixed-size values in a FIFO queue in their
// little-endian binary form.
type BinaryCodec[T any] struct {
	size tpgo.EntrySize
}

// NewBinaryCodec returns a FIFO codec for T, which must have a fixed binary
// size no larger than tpgo.MaxEntrySize.
func NewBinaryCodec[T any]() (*BinaryCodec[T], error) {
	size, err := binarySize[T]()
	if err != nil {
		return nil, err
	}
	return &BinaryCodec[T]{size: size}, nil
}

func (c *BinaryCodec[T]) EntrySize() tpgo.EntrySize { return c.size }

func (c *BinaryCodec[T]) Encode(v T, buf []byte) error {
	if _, err := binary.Encode(buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("serialization: encoding %T: %w", v, err)
	}
	return nil
}

func (c *BinaryCodec[T]) Decode(buf []byte) (T, error) {
	var v T
	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("serialization: decoding %T: %w", v, err)
	}
	return v, nil
}

func binarySize[T any]() (tpgo.EntrySize, error) {
	typ := reflect.TypeFor[T]()
	if !fixedSize(typ) {
		return 0, fmt.Errorf("serialization: %v has no fixed binary size", typ)
	}
	var zero T
	return tpgo.Classify(binary.Size(zero))
}

// fixedSize reports whether every value of typ encodes to the same number of
// bytes with encoding/binary. binary.Size alone is not enough: it measures a
// value, so a nil slice reports 0.
func fixedSize(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return fixedSize(typ.Elem())
	case reflect.Struct:
		for i := range typ.NumField() {
			if !fixedSize(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// StringCodec stores strings of bounded length in a FIFO queue, prefixed
// with their uvarint length.
type StringCodec struct {
	size   tpgo.EntrySize
	maxLen int
}

var _ FIFOCodec[string] = StringCodec{}

// NewStringCodec returns a codec for strings of at most maxLen bytes, using
// the smallest entry size that fits.
func NewStringCodec(maxLen int) (StringCodec, error) {
	if maxLen < 0 {
		return StringCodec{}, fmt.Errorf("serialization: negative max length %d", maxLen)
	}
	size, err := tpgo.Classify(maxLen + uvarintLen(uint64(maxLen)))
	if err != nil {
		return StringCodec{}, err
	}
	// Use whatever room the entry size leaves.
	capacity := size.NumBytes() - uvarintLen(uint64(size.NumBytes()))
	return StringCodec{size: size, maxLen: max(capacity, maxLen)}, nil
}

func (c StringCodec) EntrySize() tpgo.EntrySize { return c.size }

// MaxLen returns the longest string the codec accepts.
func (c StringCodec) MaxLen() int { return c.maxLen }

func (c StringCodec) Encode(v string, buf []byte) error {
	if len(v) > c.maxLen {
		return fmt.Errorf("%w: %d-byte string, max %d", ErrValueTooLarge, len(v), c.maxLen)
	}
	n := binary.PutUvarint(buf, uint64(len(v)))
	copy(buf[n:], v)
	return nil
}

func (c StringCodec) Decode(buf []byte) (string, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 || l > uint64(len(buf)-n) {
		return "", errors.New("serialization: corrupt string entry")
	}
	return string(buf[n : n+int(l)]), nil
}

func uvarintLen(v uint64) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], v)
}
