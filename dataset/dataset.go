// Package dataset models vision-language training records and the
// transformations the vldata commands apply to them. A dataset file is a JSON
// document holding either a list of records or a single value; the shape is
// decided once at load time and carried on the Collection.
package dataset

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/alejones/Qwen2-VL-Finetune/util/fileutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is one training record as decoded from disk. Fields the commands do
// not know about are preserved across transformations.
type Document = map[string]any

// Collection is a loaded dataset file.
type Collection struct {
	// Records holds the entries when the file is a list of records.
	Records []any
	// Single holds the value when the file is a single document instead.
	Single any
	// IsList reports which of the two shapes was found at load time.
	IsList bool
}

// Decode parses a dataset file and fixes its shape.
func Decode(data []byte) (*Collection, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	if list, ok := value.([]any); ok {
		return &Collection{Records: list, IsList: true}, nil
	}
	return &Collection{Single: value}, nil
}

// Load reads and decodes the dataset file at path.
func Load(path string) (*Collection, error) {
	exists, err := fileutil.FileExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("input file %s does not exist", path)
	}
	data, err := fileutil.ReadFileBytes(path)
	if err != nil {
		return nil, err
	}
	collection, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return collection, nil
}

// Len is the number of entries: the list length, or 1 for a single document.
func (c *Collection) Len() int {
	if c.IsList {
		return len(c.Records)
	}
	return 1
}

// Encode serializes the collection back to its on-disk shape, 2-space indented.
func (c *Collection) Encode() ([]byte, error) {
	if c.IsList {
		return json.MarshalIndent(c.Records, "", "  ")
	}
	return json.MarshalIndent(c.Single, "", "  ")
}

// Save encodes the collection and writes it to path.
func (c *Collection) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return fileutil.WriteFileBytes(path, data)
}

// EncodeRecords serializes a record list the same way Save does, so that the
// split partitions and extracted subsets match the format of full datasets.
func EncodeRecords[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// SaveRecords writes a record list to path.
func SaveRecords[T any](records []T, path string) error {
	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}
	return fileutil.WriteFileBytes(path, data)
}
