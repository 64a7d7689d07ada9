package usecase

import (
	"context"
	"errors"
	"fmt"
)

// Transaction runs a sequence of steps and, when one fails, undoes the
// steps before it in reverse order. Compensation i undoes operation i.
type Transaction struct {
	operations    []Operation
	compensations []Compensation
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

type Compensation struct {
	Name string
	Fn   func(context.Context) error
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.operations = append(t.operations, Operation{name, fn})
}

func (t *Transaction) AddCompensation(name string, fn func(context.Context) error) {
	t.compensations = append(t.compensations, Compensation{name, fn})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			failed := fmt.Errorf("operation '%s' failed: %w", op.Name, err)
			if rbErr := t.rollback(ctx, i); rbErr != nil {
				return errors.Join(failed, rbErr)
			}
			return failed
		}
	}
	return nil
}

// rollback runs compensations for every operation before failedAt. It
// keeps going after a failed compensation and reports all of them.
func (t *Transaction) rollback(ctx context.Context, failedAt int) error {
	var errs []error
	for i := failedAt - 1; i >= 0; i-- {
		if i >= len(t.compensations) {
			continue
		}
		comp := t.compensations[i]
		if err := comp.Fn(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("compensation '%s' failed: %w", comp.Name, err))
		}
	}
	return errors.Join(errs...)
}
