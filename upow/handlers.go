package upow

import (
	"go.dedis.ch/synergy/core/contract"
	"go.dedis.ch/synergy/core/txn"
)

// register binds the entry points of the round to the dispatch of the
// embedded contract.
func (c *SynergeticContract) register() error {
	err := c.OnTransaction(ProblemEntry, c.onProblem)
	if err != nil {
		return err
	}

	err = c.OnTransaction(WorkEntry, c.onWork)
	if err != nil {
		return err
	}

	err = c.OnTransaction(ObjectiveEntry, c.onObjective)
	if err != nil {
		return err
	}

	err = c.OnTransaction(ClearEntry, c.onClear)
	if err != nil {
		return err
	}

	err = c.OnQuery(ProblemEntry, c.queryProblem)
	if err != nil {
		return err
	}

	return c.OnQuery(BestQuery, c.queryBest)
}

func (c *SynergeticContract) onProblem(txn.Transaction, txn.BlockIndex) contract.Result {
	err := c.DefineProblem()
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	return contract.NewResult(contract.StatusOK)
}

// onWork scores the payload of the transaction. The sequence number is the
// number of work transactions dispatched before this one.
func (c *SynergeticContract) onWork(tx txn.Transaction, _ txn.BlockIndex) contract.Result {
	sub := Submission{
		From:    tx.GetFrom(),
		Nonce:   c.TransactionCounter(WorkEntry),
		Payload: tx.GetPayload(),
	}

	cand, err := c.Work(sub)
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	res := contract.NewResult(contract.StatusOK)
	res.ReturnValue = int64(cand.Score)

	return res
}

func (c *SynergeticContract) onObjective(tx txn.Transaction, _ txn.BlockIndex) contract.Result {
	score, err := c.Objective(tx.GetPayload())
	if err != nil {
		return contract.Failf(contract.StatusFailed, err.Error())
	}

	res := contract.NewResult(contract.StatusOK)
	res.ReturnValue = int64(score)

	return res
}

func (c *SynergeticContract) onClear(txn.Transaction, txn.BlockIndex) contract.Result {
	c.Clear()

	return contract.NewResult(contract.StatusOK)
}

func (c *SynergeticContract) queryProblem(_ contract.Query, response contract.Query) contract.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	response["stage"] = c.stage.String()

	if c.problem == nil {
		return contract.StatusFailed
	}

	response["problem"] = string(c.problem)

	return contract.StatusOK
}

func (c *SynergeticContract) queryBest(_ contract.Query, response contract.Query) contract.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	best, found := c.best()
	if !found {
		return contract.StatusFailed
	}

	response["submitter"] = best.Submitter.String()
	response["sequence"] = best.Sequence
	response["score"] = int64(best.Score)
	response["solution"] = string(best.Solution)

	return contract.StatusOK
}
