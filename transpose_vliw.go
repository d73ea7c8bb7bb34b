package fftgen

import "github.com/cwbudde/fftgen/gpu"

// VLIW cores issue independent operations in bundles, so each work-item
// moves several rows of a 16x16 tile and local memory is left unpadded.
const (
	vliwTile   = 16
	vliwLocalY = 4
)

type vliwTransposeGenerator struct{ family }

func (g vliwTransposeGenerator) initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error) {
	kind := g.Generator()

	env, err := resolveTranspose(kind, p, dev)
	if err != nil {
		return nil, err
	}

	tile, ly, err := fitTile(kind, vliwTile, vliwLocalY, 0, p.Precision, dev)
	if err != nil {
		return nil, err
	}

	return VLIWTransposeParams{
		Rows:      env.rows,
		Cols:      env.cols,
		In:        env.in,
		Out:       env.out,
		Precision: p.Precision,
		Twiddles:  p.TransposeTwiddles,
		Tile:      tile,
		LocalX:    tile,
		LocalY:    ly,
	}, nil
}

func (g vliwTransposeGenerator) generateKernel(sp SignatureParams) (*KernelSource, error) {
	p, err := paramsAs[VLIWTransposeParams](sp)
	if err != nil {
		return nil, err
	}
	return p.shape().source()
}

func (g vliwTransposeGenerator) workSizes(sp SignatureParams, plan *Plan, _ gpu.DeviceInfo) (WorkSizes, error) {
	p, err := paramsAs[VLIWTransposeParams](sp)
	if err != nil {
		return WorkSizes{}, err
	}
	return p.shape().workSizes(plan.batch()), nil
}

func (p VLIWTransposeParams) shape() tiledTranspose {
	return tiledTranspose{
		kind:      GeneratorTransposeVLIW,
		rows:      p.Rows,
		cols:      p.Cols,
		in:        p.In,
		out:       p.Out,
		precision: p.Precision,
		twiddles:  p.Twiddles,
		tile:      p.Tile,
		ly:        p.LocalY,
	}
}
