package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FormatVersion is the weights file version written by WriteFile.
const FormatVersion = 1

var (
	// ErrShape is returned when a stored tensor does not match the layer.
	ErrShape = errors.New("nn: tensor shape mismatch")

	// ErrMissingTensor is returned when a registered tensor is absent from a file.
	ErrMissingTensor = errors.New("nn: missing tensor")

	// ErrVersion is returned for unsupported weights file versions.
	ErrVersion = errors.New("nn: unsupported weights version")
)

// Tensor is the serialized form of one parameter.
type Tensor struct {
	Shape [2]int    `json:"shape"`
	Data  []float64 `json:"data"`
}

// File is the JSON weights file layout.
type File struct {
	Version int               `json:"version"`
	Config  json.RawMessage   `json:"config"`
	Tensors map[string]Tensor `json:"tensors"`
}

type entry struct {
	name  string
	rows  int
	cols  int
	data  []float64 // aliases the layer's backing storage
	fanIn int
	bias  bool
}

// Params is an ordered registry of the tensors that make up a network.
type Params struct {
	entries []*entry
	byName  map[string]*entry
}

// NewParams returns an empty registry.
func NewParams() *Params {
	return &Params{byName: make(map[string]*entry)}
}

// Register adds a weight matrix. It panics on duplicate names, which is a
// construction bug.
func (p *Params) Register(name string, m *mat.Dense) {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		panic("nn: register requires a contiguous matrix: " + name)
	}
	p.add(&entry{name: name, rows: raw.Rows, cols: raw.Cols, data: raw.Data, fanIn: raw.Cols})
}

// RegisterVec adds a bias vector.
func (p *Params) RegisterVec(name string, v *mat.VecDense) {
	raw := v.RawVector()
	if raw.Inc != 1 {
		panic("nn: register requires a contiguous vector: " + name)
	}
	p.add(&entry{name: name, rows: v.Len(), cols: 1, data: raw.Data[:v.Len()], bias: true})
}

func (p *Params) add(e *entry) {
	if _, dup := p.byName[e.name]; dup {
		panic("nn: duplicate tensor " + e.name)
	}
	p.entries = append(p.entries, e)
	p.byName[e.name] = e
}

// Names returns the registered tensor names in registration order.
func (p *Params) Names() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.name
	}
	return out
}

// Count returns the total number of scalar parameters.
func (p *Params) Count() int {
	n := 0
	for _, e := range p.entries {
		n += len(e.data)
	}
	return n
}

// Init fills weights with Xavier-normal values drawn from a PCG source seeded
// by seed and zeroes biases. Tensors whose name has one of the zeroPrefixes
// are zeroed as well.
func (p *Params) Init(seed uint64, zeroPrefixes ...string) {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	for _, e := range p.entries {
		if e.bias || hasAnyPrefix(e.name, zeroPrefixes) {
			clear(e.data)
			continue
		}
		dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(e.fanIn+e.rows)), Src: src}
		for i := range e.data {
			e.data[i] = dist.Rand()
		}
	}
}

// Export copies every tensor into its serialized form.
func (p *Params) Export() map[string]Tensor {
	out := make(map[string]Tensor, len(p.entries))
	for _, e := range p.entries {
		out[e.name] = Tensor{Shape: [2]int{e.rows, e.cols}, Data: append([]float64(nil), e.data...)}
	}
	return out
}

// Import copies tensors into the registered layers. Every registered tensor
// must be present with a matching shape and finite values.
func (p *Params) Import(tensors map[string]Tensor) error {
	for _, e := range p.entries {
		t, ok := tensors[e.name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingTensor, e.name)
		}
		if t.Shape != [2]int{e.rows, e.cols} || len(t.Data) != len(e.data) {
			return fmt.Errorf("%w: %s: want [%d %d], got %v with %d values", ErrShape, e.name, e.rows, e.cols, t.Shape, len(t.Data))
		}
		if !AllFinite(t.Data) {
			return fmt.Errorf("%w: %s contains non-finite values", ErrShape, e.name)
		}
	}
	for _, e := range p.entries {
		copy(e.data, tensors[e.name].Data)
	}
	return nil
}

// WriteFile encodes cfg and the registered tensors as a weights file.
func WriteFile(w io.Writer, cfg any, p *Params) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	f := File{Version: FormatVersion, Config: raw, Tensors: p.Export()}
	if err := json.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	return nil
}

// ReadFile decodes a weights file and checks its version.
func ReadFile(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, f.Version)
	}
	return &f, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
