package main

import (
	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitInternal   = 1
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
	exitSafetyNet  = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if ok := as(err, &ce); ok {
		return ce.code
	}
	return exitInternal
}

// classify attaches an exit code to a pipeline error. Errors that already carry a
// code are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		ce    *cliError
		fse   *domain.FileStructureError
		conn  *domain.ConnectionError
		me    *domain.MatchError
		chunk *domain.ChunkError
	)
	switch {
	case as(err, &ce):
		return err
	case as(err, &fse):
		return withCode(exitValidation, err)
	case as(err, &conn), as(err, &me):
		return withCode(exitDB, err)
	case as(err, &chunk):
		return withCode(exitDBWrite, err)
	case is(err, domain.ErrNothingWritten):
		return withCode(exitSafetyNet, err)
	case is(err, domain.ErrFullRunRequired):
		return withCode(exitUsage, err)
	}
	return err
}
