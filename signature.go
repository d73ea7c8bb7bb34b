package fftgen

import "fmt"

// MaxPasses bounds the number of radix passes of a Stockham kernel.
const MaxPasses = 16

// ActionVariant discriminates the kind of action that owns a signature.
type ActionVariant uint8

const (
	VariantDefaultCopy ActionVariant = iota
	VariantDefaultStockham
	VariantDefaultTranspose
)

func (v ActionVariant) String() string {
	switch v {
	case VariantDefaultCopy:
		return "default-copy"
	case VariantDefaultStockham:
		return "default-stockham"
	case VariantDefaultTranspose:
		return "default-transpose"
	default:
		return "unknown"
	}
}

func defaultVariant(kind GeneratorKind) ActionVariant {
	switch kind {
	case GeneratorCopy:
		return VariantDefaultCopy
	case GeneratorStockham:
		return VariantDefaultStockham
	default:
		return VariantDefaultTranspose
	}
}

// SignatureParams holds the generation parameters of one generator kind.
// The set of implementations is closed: CopyParams, StockhamParams,
// VLIWTransposeParams, GCNTransposeParams and InplaceTransposeParams.
// Every implementation is comparable.
type SignatureParams interface {
	Generator() GeneratorKind
	signatureParams()
}

// Signature is the complete, normalized description that determines the
// generated kernels. Two plans with equal signatures share compiled
// programs. Signature is comparable and can be used as a map key.
type Signature struct {
	Kind    GeneratorKind
	Variant ActionVariant
	// Device identifies the device the programs are compiled for.
	Device string
	Params SignatureParams
}

// Key returns a canonical text form of s. Equal signatures have equal keys.
func (s Signature) Key() string {
	return fmt.Sprintf("%s|%s|%s|%+v", s.Kind, s.Variant, s.Device, s.Params)
}

// Equal reports whether s and o describe the same kernels.
func (s Signature) Equal(o Signature) bool {
	return s == o
}

func (s Signature) String() string {
	return s.Key()
}

// CopyParams parameterizes the copy generator.
type CopyParams struct {
	Dims          int
	Lengths       [MaxDimensions]int
	In, Out       Addressing
	Precision     Precision
	WorkGroupSize int
}

// StockhamParams parameterizes the Stockham generator.
type StockhamParams struct {
	Dims      int
	Lengths   [MaxDimensions]int
	In, Out   Addressing
	Precision Precision
	InPlace   bool

	Passes  int
	Radices [MaxPasses]int

	ThreadsPerTransform int
	TransformsPerGroup  int

	ForwardScale  float64
	BackwardScale float64
}

// VLIWTransposeParams parameterizes the VLIW-tuned out-of-place transpose.
type VLIWTransposeParams struct {
	Rows, Cols int
	In, Out    Addressing
	Precision  Precision
	Twiddles   bool
	Tile       int
	LocalX     int
	LocalY     int
}

// GCNTransposeParams parameterizes the GCN-tuned out-of-place transpose.
type GCNTransposeParams struct {
	Rows, Cols int
	In, Out    Addressing
	Precision  Precision
	Twiddles   bool
	Tile       int
	LocalX     int
	LocalY     int
	// Pad is the number of extra elements per local-memory row.
	Pad int
}

// InplaceTransposeParams parameterizes the in-place square transpose.
type InplaceTransposeParams struct {
	N         int
	Data      Addressing
	Precision Precision
	Tile      int
}

func (CopyParams) Generator() GeneratorKind             { return GeneratorCopy }
func (StockhamParams) Generator() GeneratorKind         { return GeneratorStockham }
func (VLIWTransposeParams) Generator() GeneratorKind    { return GeneratorTransposeVLIW }
func (GCNTransposeParams) Generator() GeneratorKind     { return GeneratorTransposeGCN }
func (InplaceTransposeParams) Generator() GeneratorKind { return GeneratorTransposeInplace }

func (CopyParams) signatureParams()             {}
func (StockhamParams) signatureParams()         {}
func (VLIWTransposeParams) signatureParams()    {}
func (GCNTransposeParams) signatureParams()     {}
func (InplaceTransposeParams) signatureParams() {}
