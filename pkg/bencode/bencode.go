// Package bencode exposes decoded bencode documents as a closed set of value
// types. Parsing and canonical encoding are delegated to
// github.com/anacrolix/torrent/bencode.
package bencode

import (
	"errors"
	"fmt"
	"sort"

	abencode "github.com/anacrolix/torrent/bencode"
)

type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindByteString
	KindList
	KindDict
)

var kindNames = [...]string{
	"invalid",
	"integer",
	"byte string",
	"list",
	"dictionary",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return kindNames[0]
	}
	return kindNames[k]
}

// Value is one of Integer, ByteString, List or Dict.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	Integer    int64
	ByteString []byte
	List       []Value
	Dict       map[string]Value
)

func (Integer) Kind() Kind    { return KindInteger }
func (ByteString) Kind() Kind { return KindByteString }
func (List) Kind() Kind       { return KindList }
func (Dict) Kind() Kind       { return KindDict }

func (Integer) isValue()    {}
func (ByteString) isValue() {}
func (List) isValue()       {}
func (Dict) isValue()       {}

// Decode parses a complete document. When input continues past the first
// value, the decoded value is returned together with an error wrapping
// ErrTrailingBytes. Dictionary keys are accepted in any order; a repeated
// key keeps its last value.
func Decode(b []byte) (Value, error) {
	var raw abencode.Bytes
	err := abencode.Unmarshal(b, &raw)

	var trailing abencode.ErrUnusedTrailingBytes
	if err != nil && !errors.As(err, &trailing) {
		return nil, &SyntaxError{Err: err}
	}

	v, derr := fromRaw(raw)
	if derr != nil {
		return nil, derr
	}

	if err != nil {
		return v, fmt.Errorf("%w: %s", ErrTrailingBytes, trailing.Error())
	}
	return v, nil
}

// RawEntry returns the encoded bytes of the value stored under key in the
// top-level dictionary of doc, exactly as they appear in doc.
func RawEntry(doc []byte, key string) ([]byte, error) {
	var entries map[string]abencode.Bytes
	err := abencode.Unmarshal(doc, &entries)

	var trailing abencode.ErrUnusedTrailingBytes
	if err != nil && !errors.As(err, &trailing) {
		return nil, &SyntaxError{Err: err}
	}

	raw, ok := entries[key]
	if !ok || len(raw) == 0 {
		return nil, &MissingKeyError{Key: key}
	}

	return []byte(raw), nil
}

// Encode produces the canonical encoding of v, dictionary keys sorted.
func Encode(v Value) ([]byte, error) {
	return abencode.Marshal(toInterface(v))
}

// fromRaw builds a value from the encoded bytes of exactly one value.
// Dictionaries go through map[string]abencode.Bytes, which unlike the
// interface{} path does not require sorted keys.
func fromRaw(raw abencode.Bytes) (Value, error) {
	if len(raw) == 0 {
		return nil, &SyntaxError{Err: errors.New("empty value")}
	}

	var err error
	switch c := raw[0]; {
	case c == 'i':
		var n int64
		if err = abencode.Unmarshal(raw, &n); err == nil {
			return Integer(n), nil
		}
	case c >= '0' && c <= '9':
		var s string
		if err = abencode.Unmarshal(raw, &s); err == nil {
			return ByteString(s), nil
		}
	case c == 'l':
		var items []abencode.Bytes
		if err = abencode.Unmarshal(raw, &items); err == nil {
			l := make(List, 0, len(items))
			for _, item := range items {
				iv, err := fromRaw(item)
				if err != nil {
					return nil, err
				}
				l = append(l, iv)
			}
			return l, nil
		}
	case c == 'd':
		var entries map[string]abencode.Bytes
		if err = abencode.Unmarshal(raw, &entries); err == nil {
			d := make(Dict, len(entries))
			for k, item := range entries {
				iv, err := fromRaw(item)
				if err != nil {
					return nil, err
				}
				d[k] = iv
			}
			return d, nil
		}
	default:
		err = fmt.Errorf("unknown value type %q", c)
	}

	return nil, &SyntaxError{Err: err}
}

func toInterface(v Value) interface{} {
	switch v := v.(type) {
	case Integer:
		return int64(v)
	case ByteString:
		return string(v)
	case List:
		l := make([]interface{}, len(v))
		for i, item := range v {
			l[i] = toInterface(item)
		}
		return l
	case Dict:
		d := make(map[string]interface{}, len(v))
		for k, item := range v {
			d[k] = toInterface(item)
		}
		return d
	default:
		return nil
	}
}

// Keys returns the dictionary keys in their canonical (sorted) order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
