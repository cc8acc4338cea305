// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// container.go implements §4.9's asset container: a 12-byte header (magic
// "glTF", version, total length) followed by a JSON chunk and a binary
// chunk, plus the standalone-JSON-with-base64-buffers variant. The JSON
// schema below follows glTF 2.0's Document/Node/Accessor/BufferView
// shapes and is decoded directly with encoding/json.

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const (
	magicGlTF   = 0x46546C67
	chunkJSON   = 0x4E4F534A
	chunkBIN    = 0x004E4942
	headerBytes = 12
)

// Header is the container's 12-byte prefix.
type Header struct {
	Magic      uint32
	Version    uint32
	TotalLen   uint32
}

// ParseHeader validates and decodes the 12-byte header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < headerBytes {
		return Header{}, fmt.Errorf("load.ParseHeader: short buffer")
	}
	h := Header{
		Magic:    binary.LittleEndian.Uint32(b[0:4]),
		Version:  binary.LittleEndian.Uint32(b[4:8]),
		TotalLen: binary.LittleEndian.Uint32(b[8:12]),
	}
	if h.Magic != magicGlTF {
		return h, fmt.Errorf("load.ParseHeader: bad magic %#x", h.Magic)
	}
	if h.Version < 2 {
		return h, fmt.Errorf("load.ParseHeader: unsupported version %d", h.Version)
	}
	if int(h.TotalLen) != len(b) {
		return h, fmt.Errorf("load.ParseHeader: length mismatch: header says %d, got %d", h.TotalLen, len(b))
	}
	return h, nil
}

type chunkHeader struct {
	Length uint32
	Type   uint32
}

// ParseContainer validates the 12-byte header, then the JSON chunk
// (type "JSON") followed by the BIN chunk (type "BIN\0"), returning the
// decoded Document and the raw binary-chunk bytes. A missing BIN chunk is
// accepted, and logged, only when every buffer carries a data URI.
func ParseContainer(b []byte) (*Document, []byte, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, nil, err
	}
	off := headerBytes
	if off+8 > len(b) {
		return nil, nil, fmt.Errorf("load.ParseContainer: truncated JSON chunk header")
	}
	jsonHdr := chunkHeader{Length: binary.LittleEndian.Uint32(b[off : off+4]), Type: binary.LittleEndian.Uint32(b[off+4 : off+8])}
	off += 8
	if jsonHdr.Type != chunkJSON {
		return nil, nil, fmt.Errorf("load.ParseContainer: expected JSON chunk first, got type %#x", jsonHdr.Type)
	}
	if off+int(jsonHdr.Length) > len(b) {
		return nil, nil, fmt.Errorf("load.ParseContainer: JSON chunk overruns buffer")
	}
	jsonBytes := b[off : off+int(jsonHdr.Length)]
	off += int(jsonHdr.Length)

	var bin []byte
	if off < len(b) {
		if off+8 > len(b) {
			return nil, nil, fmt.Errorf("load.ParseContainer: truncated BIN chunk header")
		}
		binHdr := chunkHeader{Length: binary.LittleEndian.Uint32(b[off : off+4]), Type: binary.LittleEndian.Uint32(b[off+4 : off+8])}
		off += 8
		if binHdr.Type != chunkBIN {
			return nil, nil, fmt.Errorf("load.ParseContainer: expected BIN chunk, got type %#x", binHdr.Type)
		}
		if off+int(binHdr.Length) > len(b) {
			return nil, nil, fmt.Errorf("load.ParseContainer: BIN chunk overruns buffer")
		}
		bin = b[off : off+int(binHdr.Length)]
		off += int(binHdr.Length)
	}
	if off != int(h.TotalLen) {
		return nil, nil, fmt.Errorf("load.ParseContainer: cumulative chunk sizes %d do not match total length %d", off, h.TotalLen)
	}

	doc := &Document{}
	if err := json.Unmarshal(jsonBytes, doc); err != nil {
		return nil, nil, fmt.Errorf("load.ParseContainer: %w", err)
	}
	if bin == nil {
		for i, buf := range doc.Buffers {
			if !strings.HasPrefix(buf.URI, dataURIPrefix) {
				return nil, nil, fmt.Errorf("load.ParseContainer: no BIN chunk and buffer %d is not a data URI", i)
			}
		}
		slog.Info("load.ParseContainer: no BIN chunk; all buffers are data URIs", "buffers", len(doc.Buffers))
	}
	if err := doc.resolveBuffers(bin); err != nil {
		return nil, nil, err
	}
	return doc, bin, nil
}

const dataURIPrefix = "data:application/octet-stream;base64,"

// ParseStandaloneJSON decodes a Document whose buffers are embedded as
// base64 data URIs rather than carried in a binary chunk. Unparseable
// buffer entries become nil holes so index stability is preserved for the
// surviving buffers.
func ParseStandaloneJSON(b []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("load.ParseStandaloneJSON: %w", err)
	}
	for i := range doc.Buffers {
		uri := doc.Buffers[i].URI
		if !strings.HasPrefix(uri, dataURIPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
		if err != nil {
			doc.Buffers[i].Data = nil
			continue
		}
		doc.Buffers[i].Data = raw
	}
	return doc, nil
}

// Document
// =============================================================================

// Document is the §4.9 JSON scene structure: scenes/nodes/materials/
// meshes/textures/images/accessors/bufferViews/buffers required, plus
// optional animations/skins.
type Document struct {
	Scenes      []Scene      `json:"scenes"`
	Scene       int          `json:"scene"`
	Nodes       []Node       `json:"nodes"`
	Materials   []Material   `json:"materials"`
	Meshes      []MeshDoc    `json:"meshes"`
	Textures    []TextureRef `json:"textures"`
	Images      []Image      `json:"images"`
	Accessors   []Accessor   `json:"accessors"`
	BufferViews []BufferView `json:"bufferViews"`
	Buffers     []Buffer     `json:"buffers"`
	Animations  []AnimationDoc `json:"animations,omitempty"`
	Skins       []Skin         `json:"skins,omitempty"`
}

type Scene struct {
	Nodes []int `json:"nodes"`
}

type Node struct {
	Name        string    `json:"name"`
	Mesh        *int      `json:"mesh,omitempty"`
	Skin        *int      `json:"skin,omitempty"`
	Children    []int     `json:"children,omitempty"`
	Rotation    [4]float64 `json:"rotation,omitempty"`
	Translation [3]float64 `json:"translation,omitempty"`
	Scale       [3]float64 `json:"scale,omitempty"`
}

type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	Data       []byte `json:"-"`
}

type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
}

// AccessorComponentType mirrors the GL-like component type codes used by
// glTF accessors.
type AccessorComponentType int

const (
	CompByteS   AccessorComponentType = 5120
	CompUByte   AccessorComponentType = 5121
	CompShortS  AccessorComponentType = 5122
	CompUShortS AccessorComponentType = 5123
	CompUInt    AccessorComponentType = 5125
	CompFloatS  AccessorComponentType = 5126
)

// Accessor references a bufferView with element count, component type,
// and a named element type (SCALAR, VEC2, VEC3, VEC4, MAT4, ...).
type Accessor struct {
	BufferView    int                   `json:"bufferView"`
	ComponentType AccessorComponentType `json:"componentType"`
	Count         int                   `json:"count"`
	Type          string                `json:"type"`
}

// ElementComponents returns how many scalar components Type names.
func (a Accessor) ElementComponents() int {
	switch a.Type {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4":
		return 4
	case "MAT4":
		return 16
	default:
		return 0
	}
}

// ComponentSize returns the byte width of one scalar component.
func (a Accessor) ComponentSize() int {
	switch a.ComponentType {
	case CompByteS, CompUByte:
		return 1
	case CompShortS, CompUShortS:
		return 2
	case CompUInt, CompFloatS:
		return 4
	default:
		return 0
	}
}

// Image references a bufferView and must have mime image/png to be
// supported; other mimes are tolerated but flagged unsupported.
type Image struct {
	BufferView *int   `json:"bufferView,omitempty"`
	MimeType   string `json:"mimeType"`
}

// TextureRef references an image by source index.
type TextureRef struct {
	Source int `json:"source"`
}

// Material has a pbrMetallicRoughness subtree.
type Material struct {
	PBR struct {
		BaseColorTexture *struct {
			Index int `json:"index"`
		} `json:"baseColorTexture,omitempty"`
		BaseColorFactor  *[4]float32 `json:"baseColorFactor,omitempty"`
		MetallicFactor   *float32    `json:"metallicFactor,omitempty"`
		RoughnessFactor  *float32    `json:"roughnessFactor,omitempty"`
	} `json:"pbrMetallicRoughness"`
	EmissiveTexture *struct {
		Index int `json:"index"`
	} `json:"emissiveTexture,omitempty"`
	NormalTexture *struct {
		Index int `json:"index"`
	} `json:"normalTexture,omitempty"`
}

// MeshDoc's primitives[0] carries indices, material, and recognized
// vertex attributes.
type MeshDoc struct {
	Primitives []Primitive `json:"primitives"`
}

type Primitive struct {
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Attributes map[string]int `json:"attributes"`
}

// Skin has an inverseBindMatrices accessor and joint node indices.
type Skin struct {
	InverseBindMatrices int   `json:"inverseBindMatrices"`
	Joints              []int `json:"joints"`
}

// AnimationDoc has channels (sampler, target node+path) and samplers
// (input=time accessor, output=data accessor, interpolation).
type AnimationDoc struct {
	Channels []ChannelDoc `json:"channels"`
	Samplers []SamplerDoc `json:"samplers"`
}

type ChannelDoc struct {
	Sampler int `json:"sampler"`
	Target  struct {
		Node int    `json:"node"`
		Path string `json:"path"` // translation | rotation | scale
	} `json:"target"`
}

type SamplerDoc struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"` // STEP | LINEAR | CUBICSPLINE
}

// resolveBuffers gives every buffer without a URI the BIN chunk's bytes
// (the common single-buffer GLB layout) and decodes base64 data-URI
// buffers; a data URI that fails to decode leaves that buffer empty.
func (d *Document) resolveBuffers(bin []byte) error {
	for i := range d.Buffers {
		if d.Buffers[i].URI == "" && bin != nil {
			d.Buffers[i].Data = bin
		} else if strings.HasPrefix(d.Buffers[i].URI, dataURIPrefix) {
			raw, err := base64.StdEncoding.DecodeString(d.Buffers[i].URI[len(dataURIPrefix):])
			if err != nil {
				d.Buffers[i].Data = nil
				continue
			}
			d.Buffers[i].Data = raw
		}
	}
	return nil
}

// AccessorBytes returns the raw byte slice an accessor covers, via its
// bufferView and buffer.
func (d *Document) AccessorBytes(accessorIdx int) ([]byte, error) {
	if accessorIdx < 0 || accessorIdx >= len(d.Accessors) {
		return nil, fmt.Errorf("load.AccessorBytes: accessor %d out of range", accessorIdx)
	}
	acc := d.Accessors[accessorIdx]
	if acc.BufferView < 0 || acc.BufferView >= len(d.BufferViews) {
		return nil, fmt.Errorf("load.AccessorBytes: bufferView %d out of range", acc.BufferView)
	}
	bv := d.BufferViews[acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(d.Buffers) {
		return nil, fmt.Errorf("load.AccessorBytes: buffer %d out of range", bv.Buffer)
	}
	data := d.Buffers[bv.Buffer].Data
	if bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, fmt.Errorf("load.AccessorBytes: bufferView overruns buffer")
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}
