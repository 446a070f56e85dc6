package style

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed default_style.json
var defaultStyle string

// Default returns the style shipped with the binary.
func Default() Document {
	doc, err := Parse(defaultStyle)
	if err != nil {
		panic(fmt.Sprintf("embedded default style is invalid: %v", err))
	}
	return doc
}

// Load reads a style file from disk with the same rules as a live edit.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty, fmt.Errorf("read style %s: %w", path, err)
	}
	return Parse(string(data))
}
