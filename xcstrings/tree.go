package xcstrings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Ordered JSON tree
// ---------------------------------------------------------------------------

type kind int

const (
	kindScalar kind = iota
	kindObject
	kindArray
)

// node is one JSON value. Objects keep their keys in document order so a
// catalog is written back the way it was read.
type node struct {
	kind   kind
	keys   []string
	fields map[string]*node
	items  []*node
	raw    []byte // encoded literal for scalars
}

func newObject() *node {
	return &node{kind: kindObject, fields: make(map[string]*node)}
}

func newString(s string) *node {
	return &node{kind: kindScalar, raw: encodeString(s)}
}

// field returns the named child of an object node, or nil.
func (n *node) field(key string) *node {
	if n == nil || n.kind != kindObject {
		return nil
	}
	return n.fields[key]
}

// str returns the value of a string scalar.
func (n *node) str() (string, bool) {
	if n == nil || n.kind != kindScalar || len(n.raw) == 0 || n.raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(n.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// set stores child under key. New keys go to their sorted position when the
// existing keys are sorted, and to the end otherwise.
func (n *node) set(key string, child *node) {
	if _, ok := n.fields[key]; ok {
		n.fields[key] = child
		return
	}
	n.fields[key] = child
	if sort.StringsAreSorted(n.keys) {
		i := sort.SearchStrings(n.keys, key)
		n.keys = append(n.keys, "")
		copy(n.keys[i+1:], n.keys[i:])
		n.keys[i] = key
		return
	}
	n.keys = append(n.keys, key)
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func decodeTree(data []byte) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return root, nil
}

func decodeValue(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			obj := newObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected string key, got %v", keyTok)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return nil, fmt.Errorf("%q: %w", key, err)
				}
				if _, dup := obj.fields[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.fields[key] = child
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := &node{kind: kindArray}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.items = append(arr.items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", v)
		}
	case string:
		return newString(v), nil
	case json.Number:
		return &node{kind: kindScalar, raw: []byte(v)}, nil
	case bool:
		if v {
			return &node{kind: kindScalar, raw: []byte("true")}, nil
		}
		return &node{kind: kindScalar, raw: []byte("false")}, nil
	case nil:
		return &node{kind: kindScalar, raw: []byte("null")}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// ---------------------------------------------------------------------------
// Encoding (Xcode layout: two-space indent, `"key" : value`)
// ---------------------------------------------------------------------------

func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

func (n *node) encode(buf *bytes.Buffer, depth int) {
	pad := strings.Repeat("  ", depth)
	inner := pad + "  "

	switch n.kind {
	case kindObject:
		if len(n.keys) == 0 {
			buf.WriteString("{\n\n" + pad + "}")
			return
		}
		buf.WriteString("{\n")
		for i, key := range n.keys {
			buf.WriteString(inner)
			buf.Write(encodeString(key))
			buf.WriteString(" : ")
			n.fields[key].encode(buf, depth+1)
			if i < len(n.keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(pad + "}")
	case kindArray:
		if len(n.items) == 0 {
			buf.WriteString("[\n\n" + pad + "]")
			return
		}
		buf.WriteString("[\n")
		for i, item := range n.items {
			buf.WriteString(inner)
			item.encode(buf, depth+1)
			if i < len(n.items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(pad + "]")
	default:
		buf.Write(n.raw)
	}
}
