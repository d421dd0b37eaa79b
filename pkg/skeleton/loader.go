package skeleton

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-motionblend/pkg/rotation"
)

// Format identifies a skeleton descriptor encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Descriptor is the on-disk shape of a skeleton definition.
type Descriptor struct {
	Name   string            `json:"name,omitempty" yaml:"name,omitempty"`
	Joints []JointDescriptor `json:"joints" yaml:"joints"`
}

// JointDescriptor describes one joint. Parent may be a joint name, an index,
// or empty / "-1" for the root.
type JointDescriptor struct {
	Name         string      `json:"name" yaml:"name"`
	Parent       string      `json:"parent,omitempty" yaml:"parent,omitempty"`
	Offset       [3]float64  `json:"offset" yaml:"offset"`
	ChannelOrder string      `json:"channel_order,omitempty" yaml:"channel_order,omitempty"`
	EndSite      *[3]float64 `json:"end_site,omitempty" yaml:"end_site,omitempty"`
}

// Load reads a skeleton descriptor from disk. The format is chosen by the
// file extension (.json, otherwise YAML).
func Load(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skeleton descriptor: %w", err)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	return Parse(data, format)
}

// Parse decodes a descriptor and builds the skeleton.
func Parse(data []byte, format Format) (*Skeleton, error) {
	var desc Descriptor
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &desc); err != nil {
			return nil, fmt.Errorf("failed to parse skeleton JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &desc); err != nil {
			return nil, fmt.Errorf("failed to parse skeleton YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("skeleton: unsupported descriptor format %q", format)
	}
	return desc.Build()
}

// Build converts the descriptor into a Skeleton.
func (d Descriptor) Build() (*Skeleton, error) {
	names := make(map[string]int, len(d.Joints))
	joints := make([]Joint, 0, len(d.Joints))

	for i, jd := range d.Joints {
		parent, err := resolveParent(jd.Parent, names, i)
		if err != nil {
			return nil, err
		}

		order := rotation.DefaultOrder
		if jd.ChannelOrder != "" {
			if order, err = rotation.ParseOrder(jd.ChannelOrder); err != nil {
				return nil, fmt.Errorf("%w: joint %q: %v", ErrInvalid, jd.Name, err)
			}
		}

		j := Joint{
			Name:         jd.Name,
			Parent:       parent,
			Offset:       r3.Vec{X: jd.Offset[0], Y: jd.Offset[1], Z: jd.Offset[2]},
			ChannelOrder: order,
		}
		if jd.EndSite != nil {
			j.EndSite = &r3.Vec{X: jd.EndSite[0], Y: jd.EndSite[1], Z: jd.EndSite[2]}
		}

		names[jd.Name] = i
		joints = append(joints, j)
	}

	return New(joints)
}

// Describe converts a skeleton back to its descriptor form.
func Describe(s *Skeleton) Descriptor {
	desc := Descriptor{Joints: make([]JointDescriptor, s.NumJoints())}
	for i, j := range s.Joints() {
		jd := JointDescriptor{
			Name:         j.Name,
			Offset:       [3]float64{j.Offset.X, j.Offset.Y, j.Offset.Z},
			ChannelOrder: j.ChannelOrder.String(),
		}
		if j.Parent >= 0 {
			jd.Parent = s.joints[j.Parent].Name
		}
		if j.EndSite != nil {
			jd.EndSite = &[3]float64{j.EndSite.X, j.EndSite.Y, j.EndSite.Z}
		}
		desc.Joints[i] = jd
	}
	return desc
}

func resolveParent(ref string, names map[string]int, self int) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "-1" {
		return -1, nil
	}
	if idx, ok := names[ref]; ok {
		return idx, nil
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= self {
			return 0, fmt.Errorf("%w: joint %d parent index %d does not precede it", ErrInvalid, self, idx)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("%w: joint %d references unknown parent %q", ErrInvalid, self, ref)
}
