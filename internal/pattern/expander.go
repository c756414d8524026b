package pattern

// Expand substitutes bindings into a sequence of template terms, producing
// the output word list. Each template term expands independently via the
// Cartesian product of its referenced variables' bound value lists; a
// variable absent from bindings is left as a literal "%name" (or "%@name").
func Expand(bindings Bindings, templates []Term) []Word {
	var out []Word
	for _, t := range templates {
		out = append(out, expandTerm(bindings, t)...)
	}
	return out
}

type presentVar struct {
	name   string
	values []Word
}

// varSlot describes how one variable occurrence in a template term resolves:
// either to a value drawn from a present binding, or to a literal fallback
// because the variable is unbound.
type varSlot struct {
	present  bool
	slotIdx  int // index into the term's present list, valid when present
	fallback string
}

func expandTerm(bindings Bindings, t Term) []Word {
	var present []presentVar
	byName := make(map[string]int)
	slots := make([]varSlot, 0)

	for _, s := range t.segments {
		if s.name == "" {
			continue
		}
		if vals, ok := bindings[s.name]; ok {
			idx, known := byName[s.name]
			if !known {
				idx = len(present)
				present = append(present, presentVar{name: s.name, values: vals})
				byName[s.name] = idx
			}
			slots = append(slots, varSlot{present: true, slotIdx: idx})
			continue
		}
		fallback := "%" + s.name
		if s.plural {
			fallback = "%@" + s.name
		}
		slots = append(slots, varSlot{present: false, fallback: fallback})
	}

	for _, p := range present {
		if len(p.values) == 0 {
			return nil
		}
	}

	combos := cartesianIndices(present)
	out := make([]Word, 0, len(combos))
	for _, combo := range combos {
		out = append(out, buildWord(t, slots, present, combo))
	}
	return out
}

func cartesianIndices(present []presentVar) [][]int {
	result := [][]int{{}}
	for _, p := range present {
		var next [][]int
		for _, combo := range result {
			for i := range p.values {
				c := make([]int, len(combo)+1)
				copy(c, combo)
				c[len(combo)] = i
				next = append(next, c)
			}
		}
		result = next
	}
	return result
}

func buildWord(t Term, slots []varSlot, present []presentVar, combo []int) Word {
	var b []byte
	slot := 0
	for _, s := range t.segments {
		if s.name == "" {
			b = append(b, s.literal...)
			continue
		}
		sl := slots[slot]
		slot++
		if !sl.present {
			b = append(b, sl.fallback...)
			continue
		}
		b = append(b, present[sl.slotIdx].values[combo[sl.slotIdx]]...)
	}
	return string(b)
}
