// Package style holds the map style document and the store that publishes it.
//
// A Document is immutable: it keeps the compacted JSON bytes it was parsed
// from, in the author's key order, and every accessor decodes a fresh copy.
package style

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
)

// Indent is the indentation of the editable text form.
const Indent = "  "

// Document is one immutable version of a style document.
type Document struct {
	raw []byte
}

// Empty is the "no document" sentinel.
var Empty = Document{}

// Layer is a summary of one entry in the "layers" array.
type Layer struct {
	ID          string `json:"id" doc:"Layer identifier" example:"water"`
	Type        string `json:"type,omitempty" doc:"Layer type" example:"fill"`
	Source      string `json:"source,omitempty" doc:"Source name" example:"openmaptiles"`
	SourceLayer string `json:"sourceLayer,omitempty" doc:"Source layer within a vector source" example:"water"`
	Visible     bool   `json:"visible" doc:"Whether layout.visibility is not none"`
}

// Parse turns text into a Document. Any syntax error or shape violation is
// returned as a *ParseError.
func Parse(text string) (Document, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			// Offset counts the bytes read, including the offending one.
			return Empty, newParseError(text, max(syn.Offset-1, 0), err)
		}
		var typ *json.UnmarshalTypeError
		if errors.As(err, &typ) {
			return Empty, newParseError(text, firstNonSpace(text), ErrRootNotObject)
		}
		return Empty, newParseError(text, -1, err)
	}
	if root == nil {
		// "null" decodes into a nil map without error.
		return Empty, newParseError(text, firstNonSpace(text), ErrRootNotObject)
	}

	if err := validateLayers(text); err != nil {
		return Empty, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return Empty, newParseError(text, -1, err)
	}
	return Document{raw: buf.Bytes()}, nil
}

func validateLayers(text string) error {
	// Decoders disagree on which of two "layers" keys wins, so allow one.
	var layers gjson.Result
	var err error
	gjson.Parse(text).ForEach(func(key, value gjson.Result) bool {
		if key.String() != "layers" {
			return true
		}
		if layers.Exists() {
			err = newParseError(text, int64(value.Index), ErrDuplicateLayers)
			return false
		}
		layers = value
		return true
	})
	if err != nil || !layers.Exists() {
		return err
	}
	if !layers.IsArray() {
		return newParseError(text, int64(layers.Index), ErrLayersNotArray)
	}

	seen := map[string]bool{}
	layers.ForEach(func(_, layer gjson.Result) bool {
		if !layer.IsObject() {
			err = newParseError(text, int64(layer.Index), ErrLayerNotObject)
			return false
		}
		id := layer.Get("id")
		if id.Type != gjson.String || id.Str == "" {
			err = newParseError(text, int64(layer.Index), ErrLayerMissingID)
			return false
		}
		if seen[id.Str] {
			err = newParseError(text, int64(id.Index),
				fmt.Errorf("%w: %q", ErrDuplicateLayerID, id.Str))
			return false
		}
		seen[id.Str] = true
		return true
	})
	return err
}

func firstNonSpace(text string) int64 {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
		default:
			return int64(i)
		}
	}
	return 0
}

// IsEmpty reports whether d carries no style. An empty object counts as
// empty, so a persisted "{}" never shadows the default style.
func (d Document) IsEmpty() bool {
	return len(d.raw) == 0 || string(d.raw) == "{}"
}

// Raw returns a copy of the compact JSON bytes.
func (d Document) Raw() []byte {
	if len(d.raw) == 0 {
		return []byte("{}")
	}
	return bytes.Clone(d.raw)
}

// Text returns the editable form: the document pretty-printed with a
// two-space indent, keys in their original order.
func (d Document) Text() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.Raw(), "", Indent); err != nil {
		return string(d.raw)
	}
	return buf.String()
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return d.Raw(), nil
}

// Value decodes a fresh, caller-owned copy of the document.
func (d Document) Value() map[string]any {
	var v map[string]any
	dec := json.NewDecoder(bytes.NewReader(d.Raw()))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}

// Equal reports whether d and other describe the same JSON value.
func (d Document) Equal(other Document) bool {
	return reflect.DeepEqual(d.Value(), other.Value())
}

// Layers lists the layers in draw order.
func (d Document) Layers() []Layer {
	var out []Layer
	gjson.GetBytes(d.raw, "layers").ForEach(func(_, l gjson.Result) bool {
		out = append(out, Layer{
			ID:          l.Get("id").String(),
			Type:        l.Get("type").String(),
			Source:      l.Get("source").String(),
			SourceLayer: l.Get("source-layer").String(),
			Visible:     l.Get("layout.visibility").String() != "none",
		})
		return true
	})
	return out
}

// LayerIndex returns the position of the layer with the given id, or -1.
func (d Document) LayerIndex(id string) int {
	idx := -1
	i := 0
	gjson.GetBytes(d.raw, "layers").ForEach(func(_, l gjson.Result) bool {
		if l.Get("id").String() == id {
			idx = i
			return false
		}
		i++
		return true
	})
	return idx
}
