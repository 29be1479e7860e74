package desugar

import (
	"fmt"

	"github.com/mkerian10/pluto/internal/ast"
)

// FlattenStages resolves single-inheritance stage chains by copying
// methods, injected fields, ambient types, and lifecycle overrides from
// ancestors into concrete stages, then drops stages that are still
// abstract (non-empty RequiredMethods) after flattening. Runs ahead of
// the rest of desugar and of the checker (SPEC_FULL §3), ported from
// original_source/src/stages.rs's flatten_stage_hierarchy.
func FlattenStages(prog *ast.Program) error {
	if len(prog.Stages) == 0 {
		return nil
	}

	nameToIdx := make(map[string]int, len(prog.Stages))
	for i, s := range prog.Stages {
		nameToIdx[s.Node.Name.Node] = i
	}

	for _, s := range prog.Stages {
		if s.Node.Parent == nil {
			continue
		}
		if _, ok := nameToIdx[s.Node.Parent.Node]; !ok {
			return fmt.Errorf("stage %q inherits from unknown stage %q", s.Node.Name.Node, s.Node.Parent.Node)
		}
	}

	// Cycle detection: walk each stage's parent chain.
	for _, s := range prog.Stages {
		visited := map[string]bool{s.Node.Name.Node: true}
		cur := s.Node
		for cur.Parent != nil {
			name := cur.Parent.Node
			if visited[name] {
				return fmt.Errorf("circular stage inheritance: %q eventually inherits from itself", s.Node.Name.Node)
			}
			visited[name] = true
			idx, ok := nameToIdx[name]
			if !ok {
				break
			}
			cur = prog.Stages[idx].Node
		}
	}

	// Root-first ancestor chain per stage.
	ancestorChains := make([][]int, len(prog.Stages))
	for i, s := range prog.Stages {
		var chain []int
		cur := s.Node
		for cur.Parent != nil {
			idx, ok := nameToIdx[cur.Parent.Node]
			if !ok {
				break
			}
			chain = append(chain, idx)
			cur = prog.Stages[idx].Node
		}
		for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
			chain[l], chain[r] = chain[r], chain[l]
		}
		ancestorChains[i] = chain
	}

	snapshot := make([]*ast.Stage, len(prog.Stages))
	for i, s := range prog.Stages {
		snapshot[i] = s.Node
	}

	for i, s := range prog.Stages {
		ancestors := ancestorChains[i]
		if len(ancestors) == 0 && s.Node.Parent == nil {
			continue
		}

		effectiveMethods := map[string]ast.Spanned[*ast.Function]{}
		effectiveRequires := map[string]ast.TraitMethod{}
		var mergedInject []ast.Field
		var mergedAmbient []ast.Spanned[string]
		var mergedLifecycle []ast.Spanned[ast.Lifecycle]
		seenField := map[string]bool{}
		seenAmbient := map[string]bool{}

		allIndices := append(append([]int{}, ancestors...), i)
		for _, idx := range allIndices {
			src := snapshot[idx]

			for _, f := range src.InjectFields {
				if seenField[f.Name] {
					return fmt.Errorf("duplicate injected field %q in stage inheritance chain for %q", f.Name, s.Node.Name.Node)
				}
				seenField[f.Name] = true
				mergedInject = append(mergedInject, f)
			}

			for _, amb := range src.AmbientTypes {
				if !seenAmbient[amb.Node] {
					seenAmbient[amb.Node] = true
					mergedAmbient = append(mergedAmbient, amb)
				}
			}

			mergedLifecycle = append(mergedLifecycle, src.LifecycleOverrides...)

			for _, req := range src.RequiredMethods {
				effectiveRequires[req.Name.Node] = req
			}

			for _, m := range src.Methods {
				name := m.Node.Name.Node
				_, hasMethod := effectiveMethods[name]
				_, hasRequires := effectiveRequires[name]

				if m.Node.IsOverride {
					if !hasMethod && !hasRequires {
						return fmt.Errorf("'override fn %s' in stage %q does not override any method from a parent stage", name, src.Name.Node)
					}
				} else if idx != allIndices[0] || src.Parent != nil {
					if hasMethod || hasRequires {
						return fmt.Errorf("method %q in stage %q shadows a parent method — use 'override fn' to override", name, src.Name.Node)
					}
				}

				delete(effectiveRequires, name)
				effectiveMethods[name] = m
			}
		}

		s.Node.InjectFields = mergedInject
		s.Node.AmbientTypes = mergedAmbient
		s.Node.LifecycleOverrides = mergedLifecycle
		s.Node.RequiredMethods = s.Node.RequiredMethods[:0]
		for _, req := range effectiveRequires {
			s.Node.RequiredMethods = append(s.Node.RequiredMethods, req)
		}
		s.Node.Methods = s.Node.Methods[:0]
		for _, m := range effectiveMethods {
			s.Node.Methods = append(s.Node.Methods, m)
		}
	}

	kept := prog.Stages[:0]
	for _, s := range prog.Stages {
		if len(s.Node.RequiredMethods) == 0 {
			kept = append(kept, s)
		}
	}
	prog.Stages = kept
	return nil
}
