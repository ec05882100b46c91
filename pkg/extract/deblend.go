/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package extract

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/stellarforge/platesolve/pkg/pixel"
)

/*****************************************************************************************************************/

var deblendOffsets8 = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

/*****************************************************************************************************************/

// deblend splits a flood-filled region into one object per significant local flux peak,
// the way SExtractor's multi-threshold immersion algorithm does: pixels are claimed in
// descending order of brightness, each local maximum seeding its own component, and two
// components that first touch at a saddle point are either merged (the fainter one holds
// too little of the combined flux to matter) or confirmed permanently separate, gated by
// deblend_contrast. Returns [reg] unsplit whenever deblending is disabled or the region has
// at most one local maximum.
func deblend(buf *pixel.Buffer, reg region, threshold float32, params Params) []region {
	if params.DeblendLevels <= 1 || len(reg.pixels) < 2 {
		return []region{reg}
	}

	seeds := localMaxima(buf, reg)
	if len(seeds) < 2 {
		return []region{reg}
	}

	localIndexOf := make(map[int]int, len(reg.pixels))
	for li, idx := range reg.pixels {
		localIndexOf[idx] = li
	}

	owner := make([]int, len(reg.pixels))
	for i := range owner {
		owner[i] = -1
	}

	parent := make([]int, len(seeds))
	flux := make([]float64, len(seeds))

	seedSet := make(map[int]bool, len(seeds))

	for si, local := range seeds {
		parent[si] = si
		flux[si] = float64(buf.Data[reg.pixels[local]])
		owner[local] = si
		seedSet[local] = true
	}

	var find func(i int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	confirmedSeparate := make(map[[2]int]bool)

	type item struct {
		local int
		v     float64
	}

	order := make([]item, 0, len(reg.pixels)-len(seeds))
	for li, idx := range reg.pixels {
		if seedSet[li] {
			continue
		}
		order = append(order, item{local: li, v: float64(buf.Data[idx])})
	}

	sort.Slice(order, func(i, j int) bool { return order[i].v > order[j].v })

	contrast := params.DeblendContrast

	for _, it := range order {
		idx := reg.pixels[it.local]
		x := idx % buf.Width
		y := idx / buf.Width

		roots := make(map[int]bool)

		for _, off := range deblendOffsets8 {
			nx, ny := x+off[0], y+off[1]
			if nx < 0 || nx >= buf.Width || ny < 0 || ny >= buf.Height {
				continue
			}

			nLocal, ok := localIndexOf[ny*buf.Width+nx]
			if !ok || owner[nLocal] == -1 {
				continue
			}

			roots[find(owner[nLocal])] = true
		}

		switch len(roots) {
		case 0:
			// No claimed neighbor yet - an isolated local peak deblend missed upstream.
			// Seed a fresh component rather than dropping the pixel.
			newRoot := len(parent)
			parent = append(parent, newRoot)
			flux = append(flux, it.v)
			owner[it.local] = newRoot

		case 1:
			var r int
			for k := range roots {
				r = k
			}
			owner[it.local] = r
			flux[r] += it.v

		default:
			rootList := make([]int, 0, len(roots))
			for r := range roots {
				rootList = append(rootList, r)
			}
			sort.Slice(rootList, func(i, j int) bool { return flux[rootList[i]] > flux[rootList[j]] })

			strongest := rootList[0]

			for _, r := range rootList[1:] {
				key := pairKey(strongest, r)
				if confirmedSeparate[key] {
					continue
				}

				fa, fb := flux[strongest], flux[r]

				if math.Min(fa, fb) < contrast*(fa+fb) {
					parent[r] = strongest
					flux[strongest] += flux[r]
				} else {
					confirmedSeparate[key] = true
				}
			}

			final := find(strongest)
			owner[it.local] = final
			flux[final] += it.v
		}
	}

	groups := make(map[int][]int)

	for li, idx := range reg.pixels {
		if owner[li] == -1 {
			continue
		}
		root := find(owner[li])
		groups[root] = append(groups[root], idx)
	}

	out := make([]region, 0, len(groups))

	for _, pixels := range groups {
		child := region{pixels: pixels, peak: math.Inf(-1), touchesEdge: reg.touchesEdge}

		for _, idx := range pixels {
			v := float64(buf.Data[idx])
			if v > child.peak {
				child.peak = v
				child.peakX = idx % buf.Width
				child.peakY = idx / buf.Width
			}
		}

		out = append(out, child)
	}

	return out
}

/*****************************************************************************************************************/

func pairKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

/*****************************************************************************************************************/

// localMaxima finds every region pixel whose value is at least as large as every in-region
// 8-neighbor's, returned as local indices into reg.pixels. These seed the deblend pass.
func localMaxima(buf *pixel.Buffer, reg region) []int {
	inRegion := make(map[int]bool, len(reg.pixels))
	for _, idx := range reg.pixels {
		inRegion[idx] = true
	}

	var maxima []int

	for li, idx := range reg.pixels {
		x := idx % buf.Width
		y := idx / buf.Width
		v := buf.Data[idx]

		isMax := true

		for _, off := range deblendOffsets8 {
			nx, ny := x+off[0], y+off[1]
			if nx < 0 || nx >= buf.Width || ny < 0 || ny >= buf.Height {
				continue
			}

			nIdx := ny*buf.Width + nx
			if !inRegion[nIdx] {
				continue
			}

			if buf.Data[nIdx] > v {
				isMax = false
				break
			}
		}

		if isMax {
			maxima = append(maxima, li)
		}
	}

	return maxima
}

/*****************************************************************************************************************/
