package fftgen

import "github.com/cwbudde/fftgen/gpu"

// GCN runs 64-wide wavefronts: a 32x8 work-group is four of them. The
// local-memory row is padded by one element so column reads hit distinct
// banks.
const (
	gcnTile   = 32
	gcnLocalY = 8
	gcnPad    = 1
)

type gcnTransposeGenerator struct{ family }

func (g gcnTransposeGenerator) initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error) {
	kind := g.Generator()

	env, err := resolveTranspose(kind, p, dev)
	if err != nil {
		return nil, err
	}

	tile, ly, err := fitTile(kind, gcnTile, gcnLocalY, gcnPad, p.Precision, dev)
	if err != nil {
		return nil, err
	}

	return GCNTransposeParams{
		Rows:      env.rows,
		Cols:      env.cols,
		In:        env.in,
		Out:       env.out,
		Precision: p.Precision,
		Twiddles:  p.TransposeTwiddles,
		Tile:      tile,
		LocalX:    tile,
		LocalY:    ly,
		Pad:       gcnPad,
	}, nil
}

func (g gcnTransposeGenerator) generateKernel(sp SignatureParams) (*KernelSource, error) {
	p, err := paramsAs[GCNTransposeParams](sp)
	if err != nil {
		return nil, err
	}
	return p.shape().source()
}

func (g gcnTransposeGenerator) workSizes(sp SignatureParams, plan *Plan, _ gpu.DeviceInfo) (WorkSizes, error) {
	p, err := paramsAs[GCNTransposeParams](sp)
	if err != nil {
		return WorkSizes{}, err
	}
	return p.shape().workSizes(plan.batch()), nil
}

func (p GCNTransposeParams) shape() tiledTranspose {
	return tiledTranspose{
		kind:      GeneratorTransposeGCN,
		rows:      p.Rows,
		cols:      p.Cols,
		in:        p.In,
		out:       p.Out,
		precision: p.Precision,
		twiddles:  p.Twiddles,
		tile:      p.Tile,
		ly:        p.LocalY,
		pad:       p.Pad,
	}
}
