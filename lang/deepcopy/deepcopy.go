// Package deepcopy implements the structural copy engine used when
// sending a message between actors and when spawning an actor (to copy
// the parent's globals and the spawn callee into the new actor's arena),
// per §4.5. Sharing within the source graph is preserved via a
// source-pointer-to-dest-pointer map; cycles are handled by installing
// the tentative destination object in that map before walking children.
package deepcopy

import "github.com/mna/glade/lang/machine"

// Copier copies values from one arena into another, preserving sharing
// and handling cycles.
type Copier struct {
	dest  *machine.Arena
	seen  map[any]any // source heap pointer -> dest heap pointer
	pending []func() error // remap actions run after every node has a dest pointer installed
}

// New returns a Copier that allocates copies in dest.
func New(dest *machine.Arena) *Copier {
	return &Copier{dest: dest, seen: map[any]any{}}
}

// Copy returns a structural copy of v allocated in c's destination arena.
// Immediate values are returned unchanged (§4.5). Copy runs Finish itself
// before returning, so the final pointer-remap pass is already done; use
// CopyAll to copy a batch of roots (e.g. every global) with one shared
// pointer map.
func (c *Copier) Copy(v machine.Value) (machine.Value, error) {
	cp, err := c.copyValue(v)
	if err != nil {
		return machine.Value{}, err
	}
	if err := c.Finish(); err != nil {
		return machine.Value{}, err
	}
	return cp, nil
}

// CopyAll copies a batch of values (e.g. an actor's whole globals vector)
// sharing one pointer map and one remap pass, so that sharing between
// elements of the batch (scenario 6: two globals referencing the same
// object) is preserved exactly as within a single value's graph.
func (c *Copier) CopyAll(vs []machine.Value) ([]machine.Value, error) {
	out := make([]machine.Value, len(vs))
	for i, v := range vs {
		cp, err := c.copyValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = cp
	}
	if err := c.Finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// Finish runs every queued remap action, including the actions queued by
// other actions while it runs (a nested object's remap is queued when its
// parent's remap copies it). Safe to call once after any number of
// copyValue calls that share this Copier's pointer map.
func (c *Copier) Finish() error {
	for len(c.pending) > 0 {
		f := c.pending[0]
		c.pending = c.pending[1:]
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Copier) copyValue(v machine.Value) (machine.Value, error) {
	ptr := v.Ptr()
	if ptr == nil {
		return v, nil // immediate: returned as-is, per §4.5
	}
	if dst, ok := c.seen[ptr]; ok {
		return rewrap(v.Tag(), dst), nil
	}
	switch v.Tag() {
	case machine.TagString:
		return c.copyString(v)
	case machine.TagByteArray:
		return c.copyByteArray(v)
	case machine.TagArray:
		return c.copyArray(v)
	case machine.TagDict:
		return c.copyDict(v)
	case machine.TagObject:
		return c.copyObject(v)
	case machine.TagClosure:
		return c.copyClosure(v)
	case machine.TagCell:
		return c.copyCell(v)
	default:
		return v, nil
	}
}

func rewrap(tag machine.Tag, ptr any) machine.Value {
	switch tag {
	case machine.TagString:
		return machine.WrapString(ptr.(*machine.String))
	case machine.TagByteArray:
		return machine.WrapByteArray(ptr.(*machine.ByteArray))
	case machine.TagArray:
		return machine.WrapArray(ptr.(*machine.Array))
	case machine.TagDict:
		return machine.WrapDict(ptr.(*machine.Dict))
	case machine.TagObject:
		return machine.WrapObject(ptr.(*machine.Object))
	case machine.TagClosure:
		return machine.WrapClosure(ptr.(*machine.Closure))
	case machine.TagCell:
		return machine.WrapCell(ptr.(*machine.Cell))
	default:
		panic("deepcopy: rewrap of non-heap tag")
	}
}

func (c *Copier) copyString(v machine.Value) (machine.Value, error) {
	src := v.AsString()
	dst, err := c.dest.NewString(src.Data())
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	return machine.WrapString(dst), nil
}

func (c *Copier) copyByteArray(v machine.Value) (machine.Value, error) {
	src := v.AsByteArray()
	dst, err := c.dest.NewByteArray(src.Bytes)
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	return machine.WrapByteArray(dst), nil
}

// copyArray installs a tentative (empty-but-sized) destination array
// before copying elements, so a cyclic element referring back to this
// array finds the installed pointer instead of recursing forever; the
// pending remap action overwrites every element with its copy once all
// nodes reachable from the root have a destination pointer.
func (c *Copier) copyArray(v machine.Value) (machine.Value, error) {
	src := v.AsArray()
	dst, err := c.dest.NewArrayWithSize(len(src.Elems))
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	c.pending = append(c.pending, func() error {
		for i, e := range src.Elems {
			cp, err := c.copyValue(e)
			if err != nil {
				return err
			}
			dst.Elems[i] = cp
		}
		return nil
	})
	return machine.WrapArray(dst), nil
}

func (c *Copier) copyDict(v machine.Value) (machine.Value, error) {
	src := v.AsDict()
	dst, err := c.dest.NewDict(src.Len())
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	c.pending = append(c.pending, func() error {
		var copyErr error
		src.Each(func(k, val machine.Value) {
			if copyErr != nil {
				return
			}
			ck, err := c.copyValue(k)
			if err != nil {
				copyErr = err
				return
			}
			cv, err := c.copyValue(val)
			if err != nil {
				copyErr = err
				return
			}
			dst.Set(ck, cv)
		})
		return copyErr
	})
	return machine.WrapDict(dst), nil
}

func (c *Copier) copyObject(v machine.Value) (machine.Value, error) {
	src := v.AsObject()
	dst, err := c.dest.NewObject(src.ClassID, len(src.Slots))
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	c.pending = append(c.pending, func() error {
		for i, s := range src.Slots {
			if s.IsUndef() {
				continue
			}
			cp, err := c.copyValue(s)
			if err != nil {
				return err
			}
			dst.Slots[i] = cp
		}
		return nil
	})
	return machine.WrapObject(dst), nil
}

func (c *Copier) copyClosure(v machine.Value) (machine.Value, error) {
	src := v.AsClosure()
	dst, err := c.dest.NewClosure(src.FunID, len(src.Slots))
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	c.pending = append(c.pending, func() error {
		for i, s := range src.Slots {
			cp, err := c.copyValue(s)
			if err != nil {
				return err
			}
			dst.Slots[i] = cp
		}
		return nil
	})
	return machine.WrapClosure(dst), nil
}

// copyCell copies the cell as a one-field heap object, preserving its
// identity across a single copy via the standard pointer map — the §9
// open question's resolution: no special-casing beyond the generic
// heap-node handling every other type gets.
func (c *Copier) copyCell(v machine.Value) (machine.Value, error) {
	src := v.AsCell()
	dst, err := c.dest.NewCell(machine.Nil)
	if err != nil {
		return machine.Value{}, err
	}
	c.seen[v.Ptr()] = dst
	c.pending = append(c.pending, func() error {
		cp, err := c.copyValue(src.Value)
		if err != nil {
			return err
		}
		dst.Value = cp
		return nil
	})
	return machine.WrapCell(dst), nil
}
