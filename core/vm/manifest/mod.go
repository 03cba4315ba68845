// Package manifest implements a compiler for synergetic contracts described by
// a YAML manifest.
//
// The manifest names one of the built-in programs and gives its parameters:
//
//	program: subset-sum
//	objective: minimize
//	params:
//	  target: 42
//	  step: 3
//	  values: [3, 34, 4, 12, 5, 2]
//
// The objective is optional and defaults to the natural direction of the
// program.
package manifest

import (
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// builder creates a program from its parameters encoded in YAML.
type builder func(params []byte, dir vm.Direction) (vm.Program, error)

type program struct {
	build     builder
	direction vm.Direction
}

var programs = map[string]program{
	SubsetSum: {build: newSubsetSum, direction: vm.Minimize},
	MaxCover:  {build: newMaxCover, direction: vm.Maximize},
}

type manifest struct {
	Program   string                 `yaml:"program"`
	Objective string                 `yaml:"objective"`
	Params    map[string]interface{} `yaml:"params"`
}

// Compiler compiles YAML manifests.
//
// - implements vm.Compiler
type Compiler struct{}

// NewCompiler returns a new manifest compiler.
func NewCompiler() Compiler {
	return Compiler{}
}

// Compile implements vm.Compiler. It decodes the manifest and builds the
// program it names.
func (Compiler) Compile(source []byte) (vm.Program, error) {
	var m manifest

	err := yaml.UnmarshalStrict(source, &m)
	if err != nil {
		return nil, xerrors.Errorf("invalid manifest: %v: %w", err, vm.ErrCompilation)
	}

	prog, found := programs[m.Program]
	if !found {
		return nil, xerrors.Errorf("unknown program '%s': %w", m.Program, vm.ErrCompilation)
	}

	dir := prog.direction

	switch m.Objective {
	case "":
	case vm.Minimize.String():
		dir = vm.Minimize
	case vm.Maximize.String():
		dir = vm.Maximize
	default:
		return nil, xerrors.Errorf("unknown objective '%s': %w", m.Objective, vm.ErrCompilation)
	}

	params, err := yaml.Marshal(m.Params)
	if err != nil {
		return nil, xerrors.Errorf("invalid params: %v: %w", err, vm.ErrCompilation)
	}

	p, err := prog.build(params, dir)
	if err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", m.Program, err, vm.ErrCompilation)
	}

	return p, nil
}
