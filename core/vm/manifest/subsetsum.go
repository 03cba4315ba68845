package manifest

import (
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// SubsetSum is the name of the program looking for the subset of values whose
// sum is the closest to the target. The target moves by the step after every
// committed round and wraps every 1024 rounds.
const SubsetSum = "subset-sum"

const (
	maxValues    = 1024
	maxMagnitude = 1 << 40
)

type subsetSumParams struct {
	Target int64   `yaml:"target"`
	Step   int64   `yaml:"step"`
	Values []int64 `yaml:"values"`
}

type subsetSumProblem struct {
	Round  uint64  `json:"round"`
	Target int64   `json:"target"`
	Values []int64 `json:"values"`
}

// subsetSum is the compiled subset-sum program.
//
// - implements vm.Program
type subsetSum struct {
	params subsetSumParams
	dir    vm.Direction
}

func newSubsetSum(data []byte, dir vm.Direction) (vm.Program, error) {
	var params subsetSumParams

	err := yaml.UnmarshalStrict(data, &params)
	if err != nil {
		return nil, xerrors.Errorf("invalid params: %v", err)
	}

	if len(params.Values) == 0 {
		return nil, xerrors.New("values are missing")
	}

	if len(params.Values) > maxValues {
		return nil, xerrors.Errorf("too many values: %d > %d", len(params.Values), maxValues)
	}

	bounded := []int64{params.Target, params.Step}
	bounded = append(bounded, params.Values...)

	for _, value := range bounded {
		if value > maxMagnitude || value < -maxMagnitude {
			return nil, xerrors.Errorf("value %d out of bounds", value)
		}
	}

	return subsetSum{params: params, dir: dir}, nil
}

// Direction implements vm.Program.
func (p subsetSum) Direction() vm.Direction {
	return p.dir
}

// Problem implements vm.Program. It computes the target of the current round.
func (p subsetSum) Problem(state store.Readable) ([]byte, error) {
	rounds, err := readRounds(state)
	if err != nil {
		return nil, err
	}

	problem := subsetSumProblem{
		Round:  rounds,
		Target: p.params.Target + int64(rounds%maxValues)*p.params.Step,
		Values: p.params.Values,
	}

	data, err := json.Marshal(problem)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode problem: %v", err)
	}

	return data, nil
}

// Work implements vm.Program. It validates the selection of the submission.
func (p subsetSum) Work(problem []byte, payload []byte) ([]byte, error) {
	pb, err := p.decodeProblem(problem)
	if err != nil {
		return nil, err
	}

	indices, err := parseSelection(payload, len(pb.Values))
	if err != nil {
		return nil, err
	}

	return encodeSolution(indices)
}

// Objective implements vm.Program. It returns the distance between the sum of
// the selected values and the target.
func (p subsetSum) Objective(problem []byte, solution []byte) (vm.Score, error) {
	pb, err := p.decodeProblem(problem)
	if err != nil {
		return 0, err
	}

	indices, err := decodeSolution(solution, len(pb.Values))
	if err != nil {
		return 0, err
	}

	sum := int64(0)
	for _, index := range indices {
		sum += pb.Values[index]
	}

	diff := pb.Target - sum
	if diff < 0 {
		diff = -diff
	}

	return vm.Score(diff), nil
}

// Commit implements vm.Program. It stores the winner and moves the target.
func (p subsetSum) Commit(state store.Snapshot, problem []byte, solution []byte) error {
	score, err := p.Objective(problem, solution)
	if err != nil {
		return err
	}

	return commitWinner(state, solution, score)
}

func (p subsetSum) decodeProblem(data []byte) (subsetSumProblem, error) {
	var pb subsetSumProblem

	err := json.Unmarshal(data, &pb)
	if err != nil {
		return pb, xerrors.Errorf("malformed problem: %v", err)
	}

	if len(pb.Values) > maxValues {
		return pb, xerrors.Errorf("too many values: %d > %d", len(pb.Values), maxValues)
	}

	return pb, nil
}
