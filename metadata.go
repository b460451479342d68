package zarr

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// CompressorConfig represents the Zarr compressor metadata.
type CompressorConfig struct {
	ID      string `json:"id"`
	Level   int    `json:"level,omitempty"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// Metadata represents the Zarr V2 .zarray metadata.
type Metadata struct {
	ZarrFormat         int               `json:"zarr_format"`
	Shape              []int             `json:"shape"`
	Chunks             []int             `json:"chunks"`
	DType              string            `json:"dtype"`
	Compressor         *CompressorConfig `json:"compressor"`
	FillValue          FillValue         `json:"fill_value"`
	Order              string            `json:"order"`
	Filters            []json.RawMessage `json:"filters,omitempty"`
	DimensionSeparator string            `json:"dimension_separator,omitempty"`
}

// LoadMetadata reads and validates a .zarray document.
func LoadMetadata(reader io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(reader).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Validate checks the fields this package relies on.
func (m *Metadata) Validate() error {
	if m.ZarrFormat != 2 {
		return fmt.Errorf("unsupported zarr_format: %d, expected 2", m.ZarrFormat)
	}
	if len(m.Chunks) != len(m.Shape) {
		return fmt.Errorf("chunks %v do not match the rank of shape %v", m.Chunks, m.Shape)
	}
	for i := range m.Shape {
		if m.Shape[i] < 0 {
			return fmt.Errorf("negative extent %d at dimension %d", m.Shape[i], i)
		}
		if m.Chunks[i] <= 0 {
			return fmt.Errorf("invalid chunk extent %d at dimension %d", m.Chunks[i], i)
		}
	}
	if m.Order != "" && m.Order != "C" {
		return fmt.Errorf("unsupported order: %q, only C order is supported", m.Order)
	}
	if len(m.Filters) > 0 {
		return fmt.Errorf("filters are unsupported")
	}
	if _, err := m.separator(); err != nil {
		return err
	}
	if _, _, err := ParseDType(m.DType); err != nil {
		return fmt.Errorf("invalid dtype: %w", err)
	}
	return nil
}

func (m *Metadata) separator() (string, error) {
	switch m.DimensionSeparator {
	case "", ".":
		return ".", nil
	case "/":
		return "/", nil
	default:
		return "", fmt.Errorf("unsupported dimension_separator: %q", m.DimensionSeparator)
	}
}

// ParseDType takes a numpy-style string like "<f4", "|b1", "<i8",
// and returns a simplified string name (e.g., "float32", "bool", "int64"),
// the byte size (e.g., 4, 1, 8), and an error if unsupported.
// Big-endian (>) types are rejected.
func ParseDType(s string) (string, int, error) {
	if len(s) < 3 {
		return "", 0, fmt.Errorf("invalid dtype: %s", s)
	}

	switch s[0] {
	case '<', '|':
	case '>':
		return "", 0, fmt.Errorf("big-endian types are unsupported: %s", s)
	default:
		return "", 0, fmt.Errorf("invalid byte order in dtype: %s", s)
	}

	kind := s[1]
	size, err := strconv.Atoi(s[2:])
	if err != nil || size <= 0 {
		return "", 0, fmt.Errorf("invalid size in dtype: %s", s)
	}

	switch kind {
	case 'b':
		return "bool", size, nil
	case 'i':
		return fmt.Sprintf("int%d", size*8), size, nil
	case 'u':
		return fmt.Sprintf("uint%d", size*8), size, nil
	case 'f':
		return fmt.Sprintf("float%d", size*8), size, nil
	case 'c':
		return fmt.Sprintf("complex%d", size*8), size, nil
	default:
		return "", 0, fmt.Errorf("unsupported dtype kind: %c in %s", kind, s)
	}
}

// FillValue is the value of elements whose chunk was never written. The zero
// FillValue is null, which reads as zero.
type FillValue struct {
	v   float64
	set bool
}

// Fill returns a FillValue holding v.
func Fill(v float64) FillValue { return FillValue{v: v, set: true} }

// Value returns the fill value and whether one is set.
func (f FillValue) Value() (float64, bool) { return f.v, f.set }

func (f FillValue) String() string {
	if !f.set {
		return "null"
	}
	return strconv.FormatFloat(f.v, 'g', -1, 64)
}

func (f FillValue) MarshalJSON() ([]byte, error) {
	switch {
	case !f.set:
		return []byte("null"), nil
	case math.IsNaN(f.v):
		return []byte(`"NaN"`), nil
	case math.IsInf(f.v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f.v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(f.v)
}

func (f *FillValue) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("invalid fill_value: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		*f = FillValue{}
	case float64:
		*f = Fill(v)
	case bool:
		if v {
			*f = Fill(1)
		} else {
			*f = Fill(0)
		}
	case string:
		switch v {
		case "NaN":
			*f = Fill(math.NaN())
		case "Infinity":
			*f = Fill(math.Inf(1))
		case "-Infinity":
			*f = Fill(math.Inf(-1))
		default:
			return fmt.Errorf("unsupported fill_value: %q", v)
		}
	default:
		return fmt.Errorf("unsupported fill_value: %s", b)
	}
	return nil
}
