package document

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Encoder encodes documents to BSON format
type Encoder struct {
	buf *bytes.Buffer
}

// NewEncoder creates a new BSON encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: new(bytes.Buffer),
	}
}

// Encode encodes a document to BSON format
// BSON format: [4-byte size][elements...][0x00 terminator]
// Element format: [1-byte type][cstring key][value]
func (e *Encoder) Encode(doc *Document) ([]byte, error) {
	e.buf.Reset()

	sizePos := e.buf.Len()
	binary.Write(e.buf, binary.LittleEndian, int32(0))

	for _, key := range doc.Keys() {
		value, _ := doc.Get(key)
		if err := e.encodeElement(key, value); err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", key, err)
		}
	}

	e.buf.WriteByte(0x00)

	data := e.buf.Bytes()
	binary.LittleEndian.PutUint32(data[sizePos:], uint32(len(data)))

	return data, nil
}

// encodeElement encodes a single document element
func (e *Encoder) encodeElement(key string, value interface{}) error {
	e.buf.WriteByte(byte(TypeOf(value)))
	e.buf.WriteString(key)
	e.buf.WriteByte(0x00)

	switch v := value.(type) {
	case nil:
		// no payload for null
	case bool:
		if v {
			e.buf.WriteByte(0x01)
		} else {
			e.buf.WriteByte(0x00)
		}
	case int32:
		binary.Write(e.buf, binary.LittleEndian, v)
	case int64:
		binary.Write(e.buf, binary.LittleEndian, v)
	case float64:
		binary.Write(e.buf, binary.LittleEndian, v)
	case string:
		// String: [4-byte length including null][string bytes][0x00]
		binary.Write(e.buf, binary.LittleEndian, int32(len(v)+1))
		e.buf.WriteString(v)
		e.buf.WriteByte(0x00)
	case []byte:
		// Binary: [4-byte length][subtype][data]
		binary.Write(e.buf, binary.LittleEndian, int32(len(v)))
		e.buf.WriteByte(0x00)
		e.buf.Write(v)
	case ObjectID:
		e.buf.Write(v[:])
	case time.Time:
		// Datetime: milliseconds since epoch
		binary.Write(e.buf, binary.LittleEndian, v.UnixMilli())
	case Timestamp:
		// Timestamp: increment in the low 32 bits, seconds in the high
		binary.Write(e.buf, binary.LittleEndian, uint64(v.Seconds)<<32|uint64(v.Increment))
	case []interface{}:
		// Array is encoded as a document with numeric keys
		arrDoc := New()
		for i, item := range v {
			arrDoc.Set(strconv.Itoa(i), item)
		}
		arrData, err := NewEncoder().Encode(arrDoc)
		if err != nil {
			return err
		}
		e.buf.Write(arrData)
	case *Document:
		subData, err := NewEncoder().Encode(v)
		if err != nil {
			return err
		}
		e.buf.Write(subData)
	default:
		return fmt.Errorf("unsupported type: %T", value)
	}

	return nil
}

// CalculateSize returns the storage-measured size of a document: the length
// of its BSON encoding
func CalculateSize(doc *Document) int64 {
	data, err := NewEncoder().Encode(doc)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// Decoder decodes BSON data to documents
type Decoder struct {
	reader *bytes.Reader
}

// NewDecoder creates a new BSON decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		reader: bytes.NewReader(data),
	}
}

// Decode decodes BSON data to a document
func (d *Decoder) Decode() (*Document, error) {
	doc := New()

	var size int32
	if err := binary.Read(d.reader, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("failed to read document size: %w", err)
	}

	for {
		typeByte, err := d.reader.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read element type: %w", err)
		}

		if typeByte == 0x00 {
			break
		}

		key, err := d.readCString()
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}

		value, err := d.decodeValue(Type(typeByte))
		if err != nil {
			return nil, fmt.Errorf("failed to decode value for key %s: %w", key, err)
		}

		doc.Set(key, value)
	}

	return doc, nil
}

// readCString reads a null-terminated string
func (d *Decoder) readCString() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := d.reader.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0x00 {
			break
		}
		buf.WriteByte(b)
	}
	return buf.String(), nil
}

// decodeValue decodes a value based on its type
func (d *Decoder) decodeValue(t Type) (interface{}, error) {
	switch t {
	case TypeNull:
		return nil, nil
	case TypeBoolean:
		b, err := d.reader.ReadByte()
		return b != 0x00, err
	case TypeInt32:
		var v int32
		err := binary.Read(d.reader, binary.LittleEndian, &v)
		return v, err
	case TypeInt64:
		var v int64
		err := binary.Read(d.reader, binary.LittleEndian, &v)
		return v, err
	case TypeFloat64:
		var v float64
		err := binary.Read(d.reader, binary.LittleEndian, &v)
		return v, err
	case TypeString:
		var length int32
		if err := binary.Read(d.reader, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		strBytes := make([]byte, length-1)
		if _, err := io.ReadFull(d.reader, strBytes); err != nil {
			return nil, err
		}
		d.reader.ReadByte() // null terminator
		return string(strBytes), nil
	case TypeBinary:
		var length int32
		if err := binary.Read(d.reader, binary.LittleEndian, &length); err != nil {
			return nil, err
		}
		d.reader.ReadByte() // subtype
		data := make([]byte, length)
		if _, err := io.ReadFull(d.reader, data); err != nil {
			return nil, err
		}
		return data, nil
	case TypeObjectID:
		var id ObjectID
		if _, err := io.ReadFull(d.reader, id[:]); err != nil {
			return nil, err
		}
		return id, nil
	case TypeDateTime:
		var millis int64
		if err := binary.Read(d.reader, binary.LittleEndian, &millis); err != nil {
			return nil, err
		}
		return time.UnixMilli(millis).UTC(), nil
	case TypeTimestamp:
		var v uint64
		if err := binary.Read(d.reader, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return Timestamp{Seconds: uint32(v >> 32), Increment: uint32(v)}, nil
	case TypeArray:
		arrDoc, err := d.decodeSubDocument()
		if err != nil {
			return nil, err
		}
		arr := make([]interface{}, arrDoc.Len())
		for i := 0; i < arrDoc.Len(); i++ {
			if v, ok := arrDoc.Get(strconv.Itoa(i)); ok {
				arr[i] = v
			}
		}
		return arr, nil
	case TypeDocument:
		return d.decodeSubDocument()
	default:
		return nil, fmt.Errorf("unsupported type: %v", t)
	}
}

func (d *Decoder) decodeSubDocument() (*Document, error) {
	currentPos, _ := d.reader.Seek(0, io.SeekCurrent)
	var size int32
	if err := binary.Read(d.reader, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	d.reader.Seek(currentPos, io.SeekStart)

	docBytes := make([]byte, size)
	if _, err := io.ReadFull(d.reader, docBytes); err != nil {
		return nil, err
	}

	return NewDecoder(docBytes).Decode()
}
