package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/docmap/pkg/errors"
)

// ReadScene decodes a scene written by [WriteScene].
func ReadScene(r io.Reader) (Scene, error) {
	var sc Scene
	if err := json.NewDecoder(r).Decode(&sc); err != nil {
		return Scene{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode scene")
	}
	if sc.RootID == "" && len(sc.Nodes) > 0 {
		return Scene{}, errors.New(errors.ErrCodeInvalidFormat, "scene has nodes but no root_id")
	}
	return sc, nil
}

// WriteScene encodes sc as indented JSON.
func WriteScene(sc Scene, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sc)
}

// MarshalScene returns the JSON encoding of sc.
func MarshalScene(sc Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteScene(sc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSceneFile reads a scene from path.
func ReadSceneFile(path string) (Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scene{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadScene(f)
}

// WriteSceneFile writes sc to path.
func WriteSceneFile(sc Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteScene(sc, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
