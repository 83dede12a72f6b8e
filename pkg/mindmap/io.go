package mindmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadTree decodes a JSON tree from r and validates it.
//
// Both the flat [Tree] format and the nested [Outline] format are accepted;
// an object without "nodes" but with "title" is treated as an outline and
// assigned fresh ids. ReadTree does not close r.
func ReadTree(r io.Reader) (Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Tree{}, fmt.Errorf("read: %w", err)
	}
	return UnmarshalTree(data)
}

// UnmarshalTree is [ReadTree] over a byte slice.
func UnmarshalTree(data []byte) (Tree, error) {
	var probe struct {
		Nodes      json.RawMessage `json:"nodes"`
		Title      *string         `json:"title"`
		DocumentID string          `json:"document_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Tree{}, fmt.Errorf("decode: %w", err)
	}

	var t Tree
	if probe.Nodes == nil && probe.Title != nil {
		var o Outline
		if err := json.Unmarshal(data, &o); err != nil {
			return Tree{}, fmt.Errorf("decode outline: %w", err)
		}
		docID := probe.DocumentID
		if docID == "" {
			docID = NewUUID()
		}
		t = FromOutline(docID, o, nil)
	} else if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("decode tree: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Tree{}, err
	}
	return t, nil
}

// WriteTree encodes t as indented JSON.
func WriteTree(t Tree, w io.Writer) error {
	data, err := MarshalTree(t)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// MarshalTree serializes a Tree to pretty-printed JSON bytes.
func MarshalTree(t Tree) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadTreeFile reads a tree from a JSON file.
func ReadTreeFile(path string) (Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tree{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTree(f)
}

// WriteTreeFile writes a tree to a JSON file.
func WriteTreeFile(t Tree, path string) error {
	data, err := MarshalTree(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
