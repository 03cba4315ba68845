package manifest

import (
	"encoding/binary"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"go.dedis.ch/synergy/core/store"
	"go.dedis.ch/synergy/core/vm"
	"golang.org/x/xerrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// RoundsKey is the key of the number of committed rounds.
	RoundsKey = "rounds"

	// SolutionKey is the key of the last winning solution.
	SolutionKey = "solution"

	// ScoreKey is the key of the score of the last winning solution.
	ScoreKey = "score"
)

// submission is the payload of a work submission. It selects items of the
// problem by index.
type submission struct {
	Select []int `json:"select"`
}

// parseSelection decodes the payload and returns the sorted indices. Every
// index must be in [0, n) and appear once.
func parseSelection(payload []byte, n int) ([]int, error) {
	var sub submission

	err := json.Unmarshal(payload, &sub)
	if err != nil {
		return nil, xerrors.Errorf("malformed submission: %v", err)
	}

	return checkSelection(sub.Select, n)
}

// decodeSolution decodes a solution produced by a work function.
func decodeSolution(solution []byte, n int) ([]int, error) {
	var indices []int

	err := json.Unmarshal(solution, &indices)
	if err != nil {
		return nil, xerrors.Errorf("malformed solution: %v", err)
	}

	return checkSelection(indices, n)
}

func checkSelection(indices []int, n int) ([]int, error) {
	sorted := append([]int{}, indices...)
	sort.Ints(sorted)

	for i, index := range sorted {
		if index < 0 || index >= n {
			return nil, xerrors.Errorf("index %d out of range [0, %d)", index, n)
		}

		if i > 0 && sorted[i-1] == index {
			return nil, xerrors.Errorf("index %d selected twice", index)
		}
	}

	return sorted, nil
}

func encodeSolution(indices []int) ([]byte, error) {
	if indices == nil {
		indices = []int{}
	}

	data, err := json.Marshal(indices)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode solution: %v", err)
	}

	return data, nil
}

func readRounds(state store.Readable) (uint64, error) {
	value, err := state.Get([]byte(RoundsKey))
	if err != nil {
		return 0, xerrors.Errorf("failed to read rounds: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value), nil
}

// commitWinner stores the winning solution and its score, and moves to the
// next round.
func commitWinner(state store.Snapshot, solution []byte, score vm.Score) error {
	rounds, err := readRounds(state)
	if err != nil {
		return err
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, rounds+1)

	err = state.Set([]byte(RoundsKey), buffer)
	if err != nil {
		return xerrors.Errorf("failed to write rounds: %v", err)
	}

	err = state.Set([]byte(SolutionKey), solution)
	if err != nil {
		return xerrors.Errorf("failed to write solution: %v", err)
	}

	buffer = make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, uint64(score))

	err = state.Set([]byte(ScoreKey), buffer)
	if err != nil {
		return xerrors.Errorf("failed to write score: %v", err)
	}

	return nil
}
