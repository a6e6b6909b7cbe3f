package ambientshift

import "github.com/unixpickle/anyvec"

// gatherSamples applies a gather table to every batch element of t.
// Entry i of the result is the table[i]-th component of the sample; a
// negative entry selects an implicit zero component.
func gatherSamples(t *Tensor, table []int) anyvec.Vector {
	c := t.Creator()
	s := t.SampleSize()
	mapped := make([]int, len(table))
	for i, x := range table {
		if x < 0 {
			mapped[i] = s
		} else {
			mapped[i] = x
		}
	}
	m := c.MakeMapper(s+1, mapped)
	zero := c.MakeVector(1)

	outs := make([]anyvec.Vector, t.Batch)
	for i := range outs {
		in := c.Concat(t.Data.Slice(i*s, (i+1)*s), zero)
		out := c.MakeVector(len(mapped))
		m.Map(in, out)
		outs[i] = out
	}
	return c.Concat(outs...)
}

// gatherPair gathers from the concatenation of corresponding batch
// elements of a and b, which must have equal sample sizes.
// Table entries below a.SampleSize() select from a, the rest from b.
func gatherPair(a, b *Tensor, table []int) anyvec.Vector {
	if a.Batch != b.Batch || a.SampleSize() != b.SampleSize() {
		panic("mismatched tensor shapes")
	}
	c := a.Creator()
	s := a.SampleSize()
	m := c.MakeMapper(2*s, table)

	outs := make([]anyvec.Vector, a.Batch)
	for i := range outs {
		in := c.Concat(a.Data.Slice(i*s, (i+1)*s), b.Data.Slice(i*s, (i+1)*s))
		out := c.MakeVector(len(table))
		m.Map(in, out)
		outs[i] = out
	}
	return c.Concat(outs...)
}
