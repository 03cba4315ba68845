package manifest

import (
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// MaxCover is the name of the program looking for at most limit sets that
// cover the largest number of distinct items.
const MaxCover = "max-cover"

type maxCoverParams struct {
	Sets  [][]uint32 `yaml:"sets"`
	Limit int        `yaml:"limit"`
}

type maxCoverProblem struct {
	Round uint64     `json:"round"`
	Sets  [][]uint32 `json:"sets"`
	Limit int        `json:"limit"`
}

// maxCover is the compiled maximum coverage program.
//
// - implements vm.Program
type maxCover struct {
	params maxCoverParams
	dir    vm.Direction
}

func newMaxCover(data []byte, dir vm.Direction) (vm.Program, error) {
	var params maxCoverParams

	err := yaml.UnmarshalStrict(data, &params)
	if err != nil {
		return nil, xerrors.Errorf("invalid params: %v", err)
	}

	if len(params.Sets) == 0 {
		return nil, xerrors.New("sets are missing")
	}

	if len(params.Sets) > maxValues {
		return nil, xerrors.Errorf("too many sets: %d > %d", len(params.Sets), maxValues)
	}

	if params.Limit <= 0 {
		return nil, xerrors.Errorf("limit must be positive but got %d", params.Limit)
	}

	return maxCover{params: params, dir: dir}, nil
}

// Direction implements vm.Program.
func (p maxCover) Direction() vm.Direction {
	return p.dir
}

// Problem implements vm.Program.
func (p maxCover) Problem(state store.Readable) ([]byte, error) {
	rounds, err := readRounds(state)
	if err != nil {
		return nil, err
	}

	problem := maxCoverProblem{
		Round: rounds,
		Sets:  p.params.Sets,
		Limit: p.params.Limit,
	}

	data, err := json.Marshal(problem)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode problem: %v", err)
	}

	return data, nil
}

// Work implements vm.Program. It validates the selection of sets.
func (p maxCover) Work(problem []byte, payload []byte) ([]byte, error) {
	pb, err := p.decodeProblem(problem)
	if err != nil {
		return nil, err
	}

	indices, err := parseSelection(payload, len(pb.Sets))
	if err != nil {
		return nil, err
	}

	if len(indices) > pb.Limit {
		return nil, xerrors.Errorf("too many sets selected: %d > %d", len(indices), pb.Limit)
	}

	return encodeSolution(indices)
}

// Objective implements vm.Program. It returns the number of distinct items
// covered by the selected sets.
func (p maxCover) Objective(problem []byte, solution []byte) (vm.Score, error) {
	pb, err := p.decodeProblem(problem)
	if err != nil {
		return 0, err
	}

	indices, err := decodeSolution(solution, len(pb.Sets))
	if err != nil {
		return 0, err
	}

	if len(indices) > pb.Limit {
		return 0, xerrors.Errorf("too many sets selected: %d > %d", len(indices), pb.Limit)
	}

	covered := make(map[uint32]struct{})
	for _, index := range indices {
		for _, item := range pb.Sets[index] {
			covered[item] = struct{}{}
		}
	}

	return vm.Score(len(covered)), nil
}

// Commit implements vm.Program. It stores the winner.
func (p maxCover) Commit(state store.Snapshot, problem []byte, solution []byte) error {
	score, err := p.Objective(problem, solution)
	if err != nil {
		return err
	}

	return commitWinner(state, solution, score)
}

func (p maxCover) decodeProblem(data []byte) (maxCoverProblem, error) {
	var pb maxCoverProblem

	err := json.Unmarshal(data, &pb)
	if err != nil {
		return pb, xerrors.Errorf("malformed problem: %v", err)
	}

	return pb, nil
}
